package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ericogr/idlerpg-arena/internal/config"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/stats"
	"github.com/ericogr/idlerpg-arena/internal/storage"
)

type fakeChannel struct {
	mu         sync.Mutex
	accepters  []string
	answers    []string
	snapshots  int
	outcomes   []Outcome
	said       []string
	prompts    []string
	failRender bool
}

func (f *fakeChannel) RenderSnapshot(ctx context.Context, snap engine.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	if f.failRender {
		return fmt.Errorf("discord unavailable")
	}
	return nil
}

func (f *fakeChannel) RenderOutcome(ctx context.Context, out Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, out)
	if f.failRender {
		return fmt.Errorf("discord unavailable")
	}
	return nil
}

func (f *fakeChannel) Say(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
	return nil
}

func (f *fakeChannel) Prompt(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	return nil
}

func (f *fakeChannel) Await(ctx context.Context, userID string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return "", game.ErrInputTimeout
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func (f *fakeChannel) AwaitAccept(ctx context.Context, text string, accept func(string) bool, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range f.accepters {
		if accept(id) {
			f.accepters = append(f.accepters[:i], f.accepters[i+1:]...)
			return id, nil
		}
	}
	return "", game.ErrInputTimeout
}

func (f *fakeChannel) saidText(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.said {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

type harness struct {
	svc  *Service
	repo storage.Repository
	db   *gorm.DB
	cfg  *config.LoadedConfig
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := storage.OpenAndMigrate(storage.DriverSQLite, fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name), storage.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := storage.NewGormRepository(db)
	cfg := config.Default()
	cfg.Battle.Pace = 0
	cfg.Rewards.EggChance = 0
	tables, err := gamedata.Load()
	require.NoError(t, err)
	settler := settlement.New(repo, settlement.WithRand(rand.New(rand.NewSource(3))), settlement.WithRetry(1, 0))
	opts = append([]Option{WithRand(rand.New(rand.NewSource(11)))}, opts...)
	svc, err := New(cfg, repo, stats.NewResolver(repo), settler, tables, opts...)
	require.NoError(t, err)
	return &harness{svc: svc, repo: repo, db: db, cfg: cfg}
}

// player creates a profile; strong players cannot lose and weak ones
// cannot win.
func (h *harness) player(t *testing.T, id string, money int64, strong bool) {
	t.Helper()
	ctx := context.Background()
	p := &game.Profile{UserID: id, Name: id, Money: money, Luck: 1.5}
	if strong {
		p.Health = 1e6
	}
	require.NoError(t, h.repo.CreateProfile(ctx, p))
	if strong {
		require.NoError(t, h.db.Create(&game.Item{OwnerID: id, Name: "Blade", Damage: 1e6, Armor: 1e5, Equipped: true}).Error)
	}
}

// frail drops a player to a handful of HP so any hit kills them.
func (h *harness) frail(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, h.db.Model(&game.Profile{}).Where("user_id = ?", id).Update("health", -249).Error)
}

func (h *harness) pet(t *testing.T, owner string) {
	t.Helper()
	require.NoError(t, h.db.Create(&game.Pet{OwnerID: owner, Name: owner + "-pet", HP: 100, Attack: 5, Defense: 1, Stage: game.StageAdult, Equipped: true}).Error)
}

func (h *harness) money(t *testing.T, id string) int64 {
	t.Helper()
	p, err := h.repo.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return p.Money
}
