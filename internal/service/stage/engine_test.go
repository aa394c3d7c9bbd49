package stage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-backoffice/internal/config"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
	apperrors "github.com/jwalitptl/clinic-backoffice/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func employee() model.Actor {
	id := uuid.New()
	return model.Actor{Role: model.RoleEmployee, EmployeeID: &id}
}

func admin() model.Actor {
	id := uuid.New()
	return model.Actor{Role: model.RoleAdmin, EmployeeID: &id}
}

func ptr(s model.Stage) *model.Stage { return &s }

// Funnel NEW -> QUALIFYING -> PROPOSAL -> {WON, LOST}.
func shortFunnel(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable("NEW", "LOST", map[model.Stage][]model.Stage{
		"NEW":        {"QUALIFYING"},
		"QUALIFYING": {"PROPOSAL"},
		"PROPOSAL":   {"WON", "LOST"},
		"WON":        {},
		"LOST":       {},
	})
	require.NoError(t, err)
	return table
}

func TestTransitionSkippingStageIsInvalid(t *testing.T) {
	engine := NewEngine(shortFunnel(t), clock)

	_, err := engine.Transition(uuid.New(), ptr("QUALIFYING"), "WON", "", employee())

	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))
}

func TestTransitionRejectsSelfLoops(t *testing.T) {
	engine := NewEngine(DefaultTable(), clock)

	for _, s := range engine.Table().Stages() {
		_, err := engine.Transition(uuid.New(), ptr(s), s, "reason", employee())
		assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err), "stage %s", s)
	}
}

func TestTransitionAllowsModeledSelfLoop(t *testing.T) {
	table, err := NewTable("A", "X", map[model.Stage][]model.Stage{
		"A": {"A", "X"},
		"X": {},
	})
	require.NoError(t, err)

	entry, err := NewEngine(table, clock).Transition(uuid.New(), ptr("A"), "A", "", employee())
	require.NoError(t, err)
	assert.Equal(t, model.Stage("A"), entry.ToStage)
}

func TestTransitionLostRequiresReason(t *testing.T) {
	engine := NewEngine(shortFunnel(t), clock)
	id := uuid.New()

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := engine.Transition(id, ptr("PROPOSAL"), "LOST", reason, employee())
		assert.Equal(t, apperrors.ErrReasonRequired, apperrors.CodeOf(err), "reason %q", reason)
	}

	entry, err := engine.Transition(id, ptr("PROPOSAL"), "LOST", " price too high ", employee())
	require.NoError(t, err)
	assert.Equal(t, "price too high", entry.Reason)
}

func TestTransitionIllegalLostReportsInvalidTransitionFirst(t *testing.T) {
	engine := NewEngine(shortFunnel(t), clock)

	_, err := engine.Transition(uuid.New(), ptr("NEW"), "LOST", "", employee())

	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))
}

func TestTransitionFromNoStage(t *testing.T) {
	engine := NewEngine(DefaultTable(), clock)

	_, err := engine.Transition(uuid.New(), nil, Lost, "gone", employee())
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))

	_, err = engine.Transition(uuid.New(), nil, "UNKNOWN", "", employee())
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))

	entry, err := engine.Transition(uuid.New(), nil, Proposal, "", employee())
	require.NoError(t, err)
	assert.Nil(t, entry.FromStage)
}

func TestTransitionBuildsEntry(t *testing.T) {
	engine := NewEngine(DefaultTable(), clock)
	actor := employee()
	serviceID := uuid.New()
	current := ptr(Qualifying)

	entry, err := engine.Transition(serviceID, current, Proposal, "", actor)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, serviceID, entry.ConsultedServiceID)
	require.NotNil(t, entry.FromStage)
	assert.Equal(t, Qualifying, *entry.FromStage)
	assert.Equal(t, Proposal, entry.ToStage)
	assert.Equal(t, *actor.EmployeeID, entry.ChangedBy)
	assert.Equal(t, fixedNow, entry.ChangedAt)

	*current = Won
	assert.Equal(t, Qualifying, *entry.FromStage, "entry must not alias the caller's stage")
}

func TestClaim(t *testing.T) {
	engine := NewEngine(DefaultTable(), clock)
	actor := employee()

	t.Run("unowned service", func(t *testing.T) {
		svc := &model.ConsultedService{Base: model.Base{ID: uuid.New()}}
		claim, err := engine.Claim(svc, true, actor)
		require.NoError(t, err)
		assert.Equal(t, *actor.EmployeeID, claim.SaleID)
		require.NotNil(t, claim.Entry)
		assert.Nil(t, claim.Entry.FromStage)
		assert.Equal(t, NewContact, claim.Entry.ToStage)
	})

	t.Run("already claimed", func(t *testing.T) {
		owner := uuid.New()
		svc := &model.ConsultedService{ConsultingSaleID: &owner}
		_, err := engine.Claim(svc, true, actor)
		assert.Equal(t, apperrors.ErrAlreadyClaimed, apperrors.CodeOf(err))
	})

	t.Run("catalog entry without follow-up", func(t *testing.T) {
		_, err := engine.Claim(&model.ConsultedService{}, false, actor)
		assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.CodeOf(err))
	})

	t.Run("account without employee", func(t *testing.T) {
		_, err := engine.Claim(&model.ConsultedService{}, true, model.Actor{Role: model.RoleAdmin})
		assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.CodeOf(err))
	})

	t.Run("stage already present", func(t *testing.T) {
		svc := &model.ConsultedService{Stage: ptr(Proposal)}
		claim, err := engine.Claim(svc, true, actor)
		require.NoError(t, err)
		assert.Nil(t, claim.Entry)
	})
}

func TestReassign(t *testing.T) {
	engine := NewEngine(DefaultTable(), clock)
	owner := uuid.New()
	next := uuid.New()
	svc := &model.ConsultedService{Base: model.Base{ID: uuid.New()}, ConsultingSaleID: &owner}

	_, err := engine.Reassign(svc, next, employee())
	assert.Equal(t, apperrors.ErrPermissionDenied, apperrors.CodeOf(err))

	_, err = engine.Reassign(svc, owner, admin())
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = engine.Reassign(&model.ConsultedService{}, next, admin())
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	change, err := engine.Reassign(svc, next, admin())
	require.NoError(t, err)
	assert.Equal(t, owner, *change.FromSaleID)
	assert.Equal(t, next, change.ToSaleID)
	assert.Equal(t, fixedNow, change.ChangedAt)
}

func TestNewTableRejectsPartialTables(t *testing.T) {
	_, err := NewTable("A", "X", map[model.Stage][]model.Stage{
		"A": {"B"},
		"X": {},
	})
	assert.Error(t, err, "B has no entry")

	_, err = NewTable("A", "X", map[model.Stage][]model.Stage{"A": {}})
	assert.Error(t, err, "lost stage missing")

	_, err = NewTable("A", "X", map[model.Stage][]model.Stage{"X": {}})
	assert.Error(t, err, "initial stage missing")
}

func TestTableSuccessors(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, []model.Stage{Lost, Won}, table.Successors(ptr(Negotiation)))
	assert.NotContains(t, table.Successors(nil), Lost)
	assert.True(t, table.IsTerminal(Won))
	assert.False(t, table.IsTerminal(Proposal))
}

func TestFromConfig(t *testing.T) {
	table, err := FromConfig(config.StagesConfig{})
	require.NoError(t, err)
	assert.Equal(t, NewContact, table.Initial())

	table, err = FromConfig(config.StagesConfig{
		Initial: "OPEN",
		Lost:    "DROPPED",
		Transitions: []config.StageTransitions{
			{From: "OPEN", To: []string{"BOOKED", "DROPPED"}},
			{From: "BOOKED", To: []string{}},
			{From: "DROPPED"},
		},
	})
	require.NoError(t, err)
	assert.True(t, table.Allowed(ptr("OPEN"), "BOOKED"))
	assert.Equal(t, model.Stage("DROPPED"), table.Lost())

	_, err = FromConfig(config.StagesConfig{
		Initial:     "OPEN",
		Lost:        "DROPPED",
		Transitions: []config.StageTransitions{{From: "OPEN", To: []string{"NOWHERE"}}},
	})
	assert.Error(t, err)
}
