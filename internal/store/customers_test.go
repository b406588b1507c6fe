package store_test

import (
	"context"
	"testing"

	"github.com/d9705996/tenantcrm/internal/apperr"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.org(t, "Acme")
	globex := f.org(t, "Globex")

	user := member(model.ProfileUser, acme.ID)
	email := "wile@acme.test"
	c, err := f.store.CreateCustomer(ctx, user, store.CustomerInput{Name: "Wile", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, c.OrganizationID, "defaults to the current organization")

	_, err = f.store.CreateCustomer(ctx, user, store.CustomerInput{Name: "X", OrganizationID: globex.ID})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	_, err = f.store.CreateCustomer(ctx, user, store.CustomerInput{})
	assert.Equal(t, apperr.MissingRequiredField, apperr.KindOf(err))

	updated, err := f.store.UpdateCustomer(ctx, user, c.ID, store.CustomerInput{Name: "Wile E.", OrganizationID: globex.ID})
	require.NoError(t, err)
	assert.Equal(t, "Wile E.", updated.Name)
	assert.Equal(t, acme.ID, updated.OrganizationID, "organization is immutable")
	assert.Nil(t, updated.Email)

	list, err := f.store.ListCustomers(ctx, user, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.store.GetCustomer(ctx, member(model.ProfileUser, globex.ID), c.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	assert.Equal(t, apperr.Forbidden, apperr.KindOf(f.store.DeleteCustomer(ctx, user, c.ID)), "users cannot delete")
	require.NoError(t, f.store.DeleteCustomer(ctx, member(model.ProfileManager, acme.ID), c.ID))

	_, err = f.store.GetCustomer(ctx, user, c.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
