package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/field"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceType(t *testing.T, f *fixture, orgID string) *model.DataType {
	t.Helper()
	dt, err := f.store.CreateDataType(context.Background(), admin, store.DataTypeInput{
		Name:           "Invoice",
		OrganizationID: orgID,
		Fields: []field.Field{
			{Name: "amount", Type: field.TypeNumber},
			{Name: "paid", Type: field.TypeBoolean},
		},
	})
	require.NoError(t, err)
	return dt
}

func dataJSON(t *testing.T, e *model.DynamicDataEntry) string {
	t.Helper()
	b, err := json.Marshal(e.Data)
	require.NoError(t, err)
	return string(b)
}

func TestAcmeInvoiceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	dt := invoiceType(t, f, acme.ID)

	e, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID:     dt.ID,
		OrganizationID: acme.ID,
		Data:           map[string]any{"amount": "100", "paid": true},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), e.Data["amount"])
	assert.Equal(t, true, e.Data["paid"])
	assert.Equal(t, 1, e.SchemaVersion)

	stored, err := f.store.GetEntry(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":100,"paid":true}`, dataJSON(t, stored))
}

func TestCreateEntry_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	globex := f.org(t, "Globex")
	dt := invoiceType(t, f, acme.ID)

	tests := []struct {
		name string
		in   store.EntryInput
		want apperr.Kind
	}{
		{"missing data type", store.EntryInput{OrganizationID: acme.ID, Data: map[string]any{}}, apperr.MissingRequiredField},
		{"missing organization", store.EntryInput{DataTypeID: dt.ID, Data: map[string]any{}}, apperr.MissingRequiredField},
		{"missing data", store.EntryInput{DataTypeID: dt.ID, OrganizationID: acme.ID}, apperr.MissingRequiredField},
		{"invalid number", store.EntryInput{DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": "abc"}}, apperr.InvalidNumber},
		{"unknown data type", store.EntryInput{DataTypeID: "nope", OrganizationID: acme.ID, Data: map[string]any{}}, apperr.ConflictForeignKey},
		{"organization mismatch", store.EntryInput{DataTypeID: dt.ID, OrganizationID: globex.ID, Data: map[string]any{}}, apperr.ConflictForeignKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.CreateEntry(ctx, admin, tt.in)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestCreateEntry_NonFiniteNumberKeepsTypeReadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	dt := invoiceType(t, f, acme.ID)

	good, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": "7"},
	})
	require.NoError(t, err)

	for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
		_, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
			DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": raw},
		})
		assert.Equal(t, apperr.InvalidNumber, apperr.KindOf(err), raw)
	}
	_, err = f.store.UpdateEntry(ctx, admin, good.ID, map[string]any{"amount": "NaN"})
	assert.Equal(t, apperr.InvalidNumber, apperr.KindOf(err))

	entries, err := f.store.ListEntries(ctx, admin, dt.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"amount":7,"paid":false}`, dataJSON(t, &entries[0]))
}

func TestCreateEntry_DropdownIsPermissiveByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	dt, err := f.store.CreateDataType(ctx, admin, store.DataTypeInput{
		Name: "Ticket", OrganizationID: acme.ID,
		Fields: []field.Field{{Name: "grade", Type: field.TypeDropdown, Options: []string{"A", "B"}}},
	})
	require.NoError(t, err)

	e, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"grade": "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "C", e.Data["grade"])
}

func TestCreateEntry_StrictDropdown(t *testing.T) {
	gormDB := newFixture(t).store.DB()
	strict := store.New(gormDB, store.Options{StrictOptions: true})
	ctx := context.Background()

	acme, err := strict.CreateOrganization(ctx, admin, store.OrganizationInput{Name: "Acme"})
	require.NoError(t, err)
	dt, err := strict.CreateDataType(ctx, admin, store.DataTypeInput{
		Name: "Ticket", OrganizationID: acme.ID,
		Fields: []field.Field{{Name: "grade", Type: field.TypeDropdown, Options: []string{"A", "B"}}},
	})
	require.NoError(t, err)

	_, err = strict.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"grade": "C"},
	})
	assert.Equal(t, apperr.InvalidOption, apperr.KindOf(err))
}

func TestUpdateEntry_ReplacesWholeMapAndRestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	dt := invoiceType(t, f, acme.ID)

	e, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": "100", "paid": true},
	})
	require.NoError(t, err)

	_, _, err = f.store.UpdateDataType(ctx, admin, dt.ID, store.DataTypeInput{
		Name: "Invoice",
		Fields: []field.Field{
			{Name: "amount", Type: field.TypeNumber},
			{Name: "due", Type: field.TypeDate},
		},
	})
	require.NoError(t, err)

	updated, err := f.store.UpdateEntry(ctx, admin, e.ID, map[string]any{"amount": "7", "due": "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.SchemaVersion)

	got, err := f.store.GetEntry(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":7,"due":"2024-03-01"}`, dataJSON(t, got), "paid is gone: no partial updates")

	_, err = f.store.UpdateEntry(ctx, admin, e.ID, map[string]any{"due": "not a date"})
	assert.Equal(t, apperr.InvalidDate, apperr.KindOf(err))

	_, err = f.store.UpdateEntry(ctx, admin, "missing", map[string]any{})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListEntries_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	globex := f.org(t, "Globex")
	acmeType := invoiceType(t, f, acme.ID)
	globexType := invoiceType(t, f, globex.ID)

	for i := 0; i < 3; i++ {
		_, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
			DataTypeID: acmeType.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": i},
		})
		require.NoError(t, err)
	}

	user := member(model.ProfileUser, acme.ID)
	entries, err := f.store.ListEntries(ctx, user, acmeType.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = f.store.ListEntries(ctx, user, globexType.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	entries, err = f.store.ListEntries(ctx, admin, globexType.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntryReferences_ResolvedOnRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	company := invoiceType(t, f, acme.ID)

	target, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: company.ID, OrganizationID: acme.ID, Data: map[string]any{"amount": 1},
	})
	require.NoError(t, err)

	contact, err := f.store.CreateDataType(ctx, admin, store.DataTypeInput{
		Name: "Contact", OrganizationID: acme.ID,
		Fields: []field.Field{
			{Name: "invoice", Type: field.TypeReference, ReferenceDataTypeID: company.ID},
			{Name: "other", Type: field.TypeReference, ReferenceDataTypeID: company.ID},
		},
	})
	require.NoError(t, err)

	e, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: contact.ID, OrganizationID: acme.ID,
		Data: map[string]any{"invoice": target.ID, "other": "dangling"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Reference{ID: target.ID, Resolved: true}, e.References["invoice"])
	assert.Equal(t, model.Reference{ID: "dangling", Resolved: false}, e.References["other"])

	require.NoError(t, f.store.DeleteEntry(ctx, admin, target.ID))

	got, err := f.store.GetEntry(ctx, admin, e.ID)
	require.NoError(t, err, "dangling references never fail a read")
	assert.False(t, got.References["invoice"].Resolved)
}

func TestGetEntry_OutsideScopeForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	globex := f.org(t, "Globex")
	dt := invoiceType(t, f, acme.ID)

	e, err := f.store.CreateEntry(ctx, admin, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{},
	})
	require.NoError(t, err)

	outsider := member(model.ProfileManager, globex.ID)
	_, err = f.store.GetEntry(ctx, outsider, e.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(f.store.DeleteEntry(ctx, outsider, e.ID)))

	_, err = f.store.CreateEntry(ctx, outsider, store.EntryInput{
		DataTypeID: dt.ID, OrganizationID: acme.ID, Data: map[string]any{},
	})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}
