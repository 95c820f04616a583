package prospects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	prospects map[int64]*Prospect
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{prospects: make(map[int64]*Prospect)}
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*Prospect, error) {
	p, ok := r.prospects[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) List(_ context.Context, req ListProspectsRequest) ([]Prospect, int, error) {
	var result []Prospect
	for _, p := range r.prospects {
		if req.Stage != nil && p.Stage != *req.Stage {
			continue
		}
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Create(_ context.Context, p Prospect) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	r.prospects[p.ID] = &p
	return p.ID, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	p, ok := r.prospects[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["stage"]; ok {
		p.Stage = Stage(v.(string))
	}
	if v, ok := updates["business_name"]; ok {
		p.BusinessName = v.(string)
	}
	if v, ok := updates["location_id"]; ok {
		id := v.(int64)
		p.LocationID = &id
	}
	return nil
}

func (r *memoryRepo) CountByStage(_ context.Context) ([]StageCount, error) {
	byStage := make(map[Stage]int64)
	for _, p := range r.prospects {
		byStage[p.Stage]++
	}
	counts := make([]StageCount, 0, len(Stages()))
	for _, stage := range Stages() {
		counts = append(counts, StageCount{Stage: stage, Count: byStage[stage]})
	}
	return counts, nil
}

func TestCreateStartsAtNew(t *testing.T) {
	svc := NewService(newMemoryRepo())
	p, err := svc.Create(context.Background(), CreateProspectRequest{BusinessName: "Joe's Deli"})
	require.NoError(t, err)
	require.Equal(t, StageNew, p.Stage)
}

func TestMoveStageThroughFunnel(t *testing.T) {
	svc := NewService(newMemoryRepo())
	p, err := svc.Create(context.Background(), CreateProspectRequest{BusinessName: "Acme Gym"})
	require.NoError(t, err)

	for _, stage := range []string{"contacted", "visited"} {
		p, err = svc.MoveStage(context.Background(), p.ID, MoveStageRequest{Stage: stage})
		require.NoError(t, err)
		require.Equal(t, Stage(stage), p.Stage)
	}

	locationID := int64(7)
	p, err = svc.MoveStage(context.Background(), p.ID, MoveStageRequest{Stage: "won", LocationID: &locationID})
	require.NoError(t, err)
	require.Equal(t, StageWon, p.Stage)
	require.NotNil(t, p.LocationID)
	require.Equal(t, locationID, *p.LocationID)
}

func TestMoveStageRejectsUnknownStage(t *testing.T) {
	svc := NewService(newMemoryRepo())
	p, err := svc.Create(context.Background(), CreateProspectRequest{BusinessName: "Acme Gym"})
	require.NoError(t, err)

	_, err = svc.MoveStage(context.Background(), p.ID, MoveStageRequest{Stage: "maybe"})
	require.ErrorIs(t, err, ErrInvalidStage)
}

func TestMoveStageRejectsRegressionAfterDecision(t *testing.T) {
	svc := NewService(newMemoryRepo())
	p, err := svc.Create(context.Background(), CreateProspectRequest{BusinessName: "Acme Gym"})
	require.NoError(t, err)

	_, err = svc.MoveStage(context.Background(), p.ID, MoveStageRequest{Stage: "lost"})
	require.NoError(t, err)

	_, err = svc.MoveStage(context.Background(), p.ID, MoveStageRequest{Stage: "contacted"})
	require.ErrorIs(t, err, ErrStageRegression)
}

func TestFunnelCounts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateProspectRequest{BusinessName: "Lead"})
		require.NoError(t, err)
	}
	_, err := svc.MoveStage(ctx, 1, MoveStageRequest{Stage: "won"})
	require.NoError(t, err)
	_, err = svc.MoveStage(ctx, 2, MoveStageRequest{Stage: "lost"})
	require.NoError(t, err)

	counts, err := svc.Funnel(ctx)
	require.NoError(t, err)

	byStage := make(map[Stage]int64)
	for _, c := range counts {
		byStage[c.Stage] = c.Count
	}
	require.Equal(t, int64(1), byStage[StageNew])
	require.Equal(t, int64(1), byStage[StageWon])
	require.Equal(t, int64(1), byStage[StageLost])
}
