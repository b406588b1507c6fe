package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/d9705996/tenantcrm/internal/access"
	"github.com/d9705996/tenantcrm/internal/db/dbtest"
	"github.com/d9705996/tenantcrm/internal/model"
	"github.com/d9705996/tenantcrm/internal/store"
	"github.com/d9705996/tenantcrm/internal/worker"
	"github.com/stretchr/testify/require"
)

var admin = &access.Caller{ProfileID: "admin", Type: model.ProfileAdministrator}

type recordedEvent struct {
	OrgID, Resource, Action, ResourceID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, orgID, resource, action, resourceID, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{orgID, resource, action, resourceID})
}

func (p *recordingPublisher) Close() {}

type recordingQueue struct {
	jobs []worker.SchemaDriftArgs
}

func (q *recordingQueue) EnqueueSchemaDrift(_ context.Context, args worker.SchemaDriftArgs) error {
	q.jobs = append(q.jobs, args)
	return nil
}

type fixture struct {
	store  *store.Store
	events *recordingPublisher
	jobs   *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{events: &recordingPublisher{}, jobs: &recordingQueue{}}
	f.store = store.New(dbtest.Open(t), store.Options{Events: f.events, Jobs: f.jobs})
	return f
}

func (f *fixture) org(t *testing.T, name string) *model.Organization {
	t.Helper()
	org, err := f.store.CreateOrganization(context.Background(), admin, store.OrganizationInput{Name: name})
	require.NoError(t, err)
	return org
}

// member returns a caller of type typ belonging to orgs, with the first one
// selected.
func member(typ model.ProfileType, orgs ...string) *access.Caller {
	c := &access.Caller{ProfileID: string(typ) + "-caller", Type: typ, Memberships: orgs}
	if len(orgs) > 0 {
		c.CurrentOrganizationID = orgs[0]
	}
	return c
}
