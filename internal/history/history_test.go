package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

func prediction(studentID, level string, score float64, ts time.Time) *risk.RiskPredictionResponse {
	return &risk.RiskPredictionResponse{
		StudentID:  studentID,
		RiskLevel:  level,
		RiskScore:  score,
		Confidence: 90,
		Probabilities: map[string]float64{
			risk.LevelSafe:   1 - score,
			risk.LevelAtRisk: score,
		},
		PredictionID: "pred_" + studentID + ts.Format("150405.000"),
		Timestamp:    ts,
	}
}

func repos(t *testing.T) map[string]Repository {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Repository{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func seed(t *testing.T, repo Repository) (t0 time.Time) {
	t.Helper()
	t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(prediction("S1", risk.LevelAtRisk, 0.8, t0)))
	require.NoError(t, repo.Save(prediction("S1", risk.LevelMedium, 0.5, t0.Add(time.Hour))))
	require.NoError(t, repo.Save(prediction("S1", risk.LevelSafe, 0.2, t0.Add(2*time.Hour))))
	require.NoError(t, repo.Save(prediction("S2", risk.LevelAtRisk, 0.9, t0.Add(30*time.Minute))))
	return t0
}

func TestFindByStudent_NewestFirst(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			preds, err := repo.FindByStudent("S1")
			require.NoError(t, err)
			require.Len(t, preds, 3)
			assert.Equal(t, risk.LevelSafe, preds[0].RiskLevel)
			assert.Equal(t, risk.LevelAtRisk, preds[2].RiskLevel)
		})
	}
}

func TestLatestForStudent(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			latest, err := repo.LatestForStudent("S1")
			require.NoError(t, err)
			assert.Equal(t, risk.LevelSafe, latest.RiskLevel)
			assert.Equal(t, 0.2, latest.RiskScore)
		})
	}
}

func TestLatestForStudent_NotFound(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.LatestForStudent("missing")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestHistory_Truncates(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			preds, err := repo.History("S1", 2)
			require.NoError(t, err)
			require.Len(t, preds, 2)
			assert.Equal(t, risk.LevelSafe, preds[0].RiskLevel)
			assert.Equal(t, risk.LevelMedium, preds[1].RiskLevel)
		})
	}
}

func TestFindByRiskLevel(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			preds, err := repo.FindByRiskLevel(risk.LevelAtRisk)
			require.NoError(t, err)
			require.Len(t, preds, 2)
			for _, p := range preds {
				assert.Equal(t, risk.LevelAtRisk, p.RiskLevel)
			}
		})
	}
}

func TestRiskTrend_OldestFirst(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			t0 := seed(t, repo)

			trend, err := repo.RiskTrend("S1", 10)
			require.NoError(t, err)
			require.Len(t, trend, 3)
			assert.Equal(t, t0, trend[0].Timestamp)
			assert.Equal(t, 0.8, trend[0].RiskScore)
			assert.Equal(t, 0.2, trend[2].RiskScore)
		})
	}
}

func TestRiskTrend_WindowMatchesHistory(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			trend, err := repo.RiskTrend("S1", 2)
			require.NoError(t, err)
			// Same truncation window as History(2): the two newest,
			// delivered oldest first.
			require.Len(t, trend, 2)
			assert.Equal(t, 0.5, trend[0].RiskScore)
			assert.Equal(t, 0.2, trend[1].RiskScore)
		})
	}
}

func TestSave_AppendOnly(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			first := prediction("S1", risk.LevelAtRisk, 0.8, ts)
			require.NoError(t, repo.Save(first))

			// A newer prediction supersedes by lookup, never by mutation.
			second := prediction("S1", risk.LevelSafe, 0.1, ts.Add(time.Hour))
			require.NoError(t, repo.Save(second))

			all, err := repo.FindByStudent("S1")
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestMemoryStore_ReadsCopyOut(t *testing.T) {
	repo := NewMemoryStore()
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(prediction("S1", risk.LevelAtRisk, 0.8, ts)))

	preds, err := repo.FindByStudent("S1")
	require.NoError(t, err)
	preds[0].RiskScore = 0

	again, err := repo.FindByStudent("S1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, again[0].RiskScore)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Save(prediction("S1", risk.LevelAtRisk, 0.8, ts)))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	latest, err := reopened.LatestForStudent("S1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, latest.RiskScore)
}
