package strategy

import (
	"testing"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEntity(t *testing.T) {
	t.Parallel()

	t.Run("ma crossover", func(t *testing.T) {
		t.Parallel()
		s, err := FromEntity(entity.Strategy{
			Name:   "my_ma",
			Params: `{"type":"ma_crossover","short_ma_period":10,"long_ma_period":50,"timeframe":"1h"}`,
		})
		require.NoError(t, err)
		assert.Equal(t, "my_ma", s.Name())
		assert.IsType(t, (*MACrossover)(nil), s)
	})

	t.Run("type defaults to ma crossover", func(t *testing.T) {
		t.Parallel()
		s, err := FromEntity(entity.Strategy{
			Name:   "legacy",
			Params: `{"short_ma_period":3,"long_ma_period":5}`,
		})
		require.NoError(t, err)
		assert.IsType(t, (*MACrossover)(nil), s)
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		_, err := FromEntity(entity.Strategy{
			Name:   "rsi",
			Params: `{"type":"rsi_reversal"}`,
		})
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := FromEntity(entity.Strategy{
			Name:   "broken",
			Params: `{not json`,
		})
		assert.Error(t, err)
	})

	t.Run("invalid periods", func(t *testing.T) {
		t.Parallel()
		_, err := FromEntity(entity.Strategy{
			Name:   "inverted",
			Params: `{"type":"ma_crossover","short_ma_period":50,"long_ma_period":10}`,
		})
		assert.Error(t, err)
	})
}
