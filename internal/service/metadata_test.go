package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/olegmakarov/gigflow-backend/internal/models"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
)

func TestNormalizeCurrency(t *testing.T) {
	code, err := NormalizeCurrency("usd")
	assert.NoError(t, err)
	assert.Equal(t, "USD", code)

	code, err = NormalizeCurrency("  eur ")
	assert.NoError(t, err)
	assert.Equal(t, "EUR", code)

	code, err = NormalizeCurrency("")
	assert.NoError(t, err)
	assert.Equal(t, "USD", code)

	_, err = NormalizeCurrency("долл")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = NormalizeCurrency("US")
	assert.Error(t, err)

	_, err = NormalizeCurrency("U5D")
	assert.Error(t, err)
}

func TestNormalizeAmount(t *testing.T) {
	amount, err := NormalizeAmount(10.999)
	assert.NoError(t, err)
	assert.Equal(t, 11.0, amount)

	amount, err = NormalizeAmount(1234.5678)
	assert.NoError(t, err)
	assert.InDelta(t, 1234.57, amount, 0.0001)

	// Повторная нормализация уже нормализованной суммы ничего не меняет.
	again, err := NormalizeAmount(amount)
	assert.NoError(t, err)
	assert.Equal(t, amount, again)

	_, err = NormalizeAmount(-1)
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestNormalizeCSAT(t *testing.T) {
	result, err := NormalizeCSAT(nil)
	assert.NoError(t, err)
	assert.Nil(t, result)

	score := 4.666
	result, err = NormalizeCSAT(&score)
	assert.NoError(t, err)
	assert.Equal(t, 4.67, *result)

	again, err := NormalizeCSAT(result)
	assert.NoError(t, err)
	assert.Equal(t, *result, *again)

	tooHigh := 5.1
	_, err = NormalizeCSAT(&tooHigh)
	assert.Error(t, err)

	negative := -0.1
	_, err = NormalizeCSAT(&negative)
	assert.Error(t, err)
}

func TestNormalizeTags(t *testing.T) {
	// Массив строк: порядок сохраняется, дубли и пустые выкидываются.
	tags, err := NormalizeTags([]interface{}{"logo", " branding ", "logo", ""})
	assert.NoError(t, err)
	assert.Equal(t, []string{"logo", "branding"}, tags)

	// Строка с запятыми.
	tags, err = NormalizeTags("rush, vip,rush")
	assert.NoError(t, err)
	assert.Equal(t, []string{"rush", "vip"}, tags)

	// Объект: значения в порядке отсортированных ключей.
	tags, err = NormalizeTags(map[string]interface{}{"b": "second", "a": "first"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, tags)

	// nil проходит как отсутствие значения.
	tags, err = NormalizeTags(nil)
	assert.NoError(t, err)
	assert.Nil(t, tags)

	// Числа в массиве недопустимы.
	_, err = NormalizeTags([]interface{}{"ok", 42})
	assert.Error(t, err)

	_, err = NormalizeTags(42)
	assert.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	for _, raw := range []string{
		"2026-03-01T10:00:00Z",
		"2026-03-01T10:00:00",
		"2026-03-01 10:00:00",
		"2026-03-01",
	} {
		ts, err := NormalizeDate(raw)
		assert.NoError(t, err, raw)
		assert.NotNil(t, ts, raw)
	}

	ts, err := NormalizeDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, ts)

	_, err = NormalizeDate("позавчера")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestParseOrderMetadataLenient(t *testing.T) {
	meta := ParseOrderMetadata(json.RawMessage(`{"pipeline_stage":"production","csat_score":4.5}`))
	assert.NotNil(t, meta.PipelineStage)
	assert.Equal(t, "production", *meta.PipelineStage)
	assert.Equal(t, 4.5, *meta.CSATScore)

	// Битый JSON деградирует до пустого бэга, не до ошибки.
	meta = ParseOrderMetadata(json.RawMessage(`{broken`))
	assert.Nil(t, meta.PipelineStage)
	assert.Nil(t, meta.CSATScore)

	meta = ParseOrderMetadata(nil)
	assert.Nil(t, meta.Tags)
}

func TestMergeOrderMetadata(t *testing.T) {
	stage := models.PipelineStageProduction
	oldScore := 3.0
	newScore := 4.5
	contact := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	base := models.OrderMetadata{
		PipelineStage: &stage,
		CSATScore:     &oldScore,
		Tags:          []string{"old"},
	}
	patch := models.OrderMetadata{
		CSATScore:     &newScore,
		Tags:          []string{"fresh", "rush"},
		LastContactAt: &contact,
	}

	merged := MergeOrderMetadata(base, patch)

	// Незатронутые ключи сохраняются, заданные замещаются целиком.
	assert.Equal(t, models.PipelineStageProduction, *merged.PipelineStage)
	assert.Equal(t, 4.5, *merged.CSATScore)
	assert.Equal(t, []string{"fresh", "rush"}, merged.Tags)
	assert.Equal(t, contact, *merged.LastContactAt)
}
