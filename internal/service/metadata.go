package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/models"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
)

// Форматы дат, принимаемые нормализатором. Наружу даты всегда уходят в RFC3339.
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseOrderMetadata разбирает сырой metadata-бэг заказа.
// Невалидный JSON намеренно деградирует до пустого бэга, а не до ошибки:
// источник частично свободнотекстовый, и чтение не должно падать из-за него.
func ParseOrderMetadata(raw json.RawMessage) models.OrderMetadata {
	var meta models.OrderMetadata
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.OrderMetadata{}
	}
	return meta
}

// ParsePayoutMetadata разбирает metadata-бэг чекпоинта с той же леностью.
func ParsePayoutMetadata(raw json.RawMessage) models.PayoutMetadata {
	var meta models.PayoutMetadata
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.PayoutMetadata{}
	}
	return meta
}

// Round2 округляет до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeAmount приводит денежную сумму: неотрицательная, конечная, 2 знака.
func NormalizeAmount(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма должна быть конечным числом")
	}
	if v < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Round2(v), nil
}

// NormalizeCurrency приводит код валюты к верхнему регистру.
// Пустое значение заменяется на USD, иначе требуются ровно 3 буквы.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "USD", nil
	}
	code = strings.ToUpper(code)
	if len(code) != 3 {
		return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("код валюты %q должен состоять из 3 букв", code))
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("код валюты %q должен состоять из 3 букв", code))
		}
	}
	return code, nil
}

// NormalizeCSAT проверяет оценку удовлетворённости: [0,5], 2 знака. nil допустим.
func NormalizeCSAT(v *float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка CSAT должна быть числом от 0 до 5")
	}
	rounded := Round2(*v)
	return &rounded, nil
}

// NormalizeTags приводит список тегов к упорядоченному списку непустых строк
// без дублей. Принимает массив, строку с запятыми или объект со строковыми
// значениями; любая другая форма — ошибка валидации.
func NormalizeTags(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}

	var raw []string
	switch value := v.(type) {
	case []string:
		raw = value
	case []interface{}:
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, apperror.New(apperror.ErrCodeValidation, "теги в массиве должны быть строками")
			}
			raw = append(raw, s)
		}
	case string:
		raw = strings.Split(value, ",")
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s, ok := value[k].(string)
			if !ok {
				return nil, apperror.New(apperror.ErrCodeValidation, "значения тегов в объекте должны быть строками")
			}
			raw = append(raw, s)
		}
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "теги должны быть массивом, строкой или объектом строк")
	}

	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags, nil
}

// NormalizeDate разбирает дату из строки. Пустой вход проходит как отсутствие
// значения, непустой и неразбираемый — ошибка валидации.
func NormalizeDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range acceptedDateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return &ts, nil
		}
	}
	return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("не удалось разобрать дату %q", v))
}

// MergeOrderMetadata сливает patch поверх base: каждое заданное в patch поле
// целиком замещает старое значение по ключу. Глубокого слияния нет.
func MergeOrderMetadata(base, patch models.OrderMetadata) models.OrderMetadata {
	merged := base
	if patch.PipelineStage != nil {
		merged.PipelineStage = patch.PipelineStage
	}
	if patch.IntakeStatus != nil {
		merged.IntakeStatus = patch.IntakeStatus
	}
	if patch.KickoffStatus != nil {
		merged.KickoffStatus = patch.KickoffStatus
	}
	if patch.KickoffCompletedAt != nil {
		merged.KickoffCompletedAt = patch.KickoffCompletedAt
	}
	if patch.Tags != nil {
		merged.Tags = patch.Tags
	}
	if patch.CSATScore != nil {
		merged.CSATScore = patch.CSATScore
	}
	if patch.LastContactAt != nil {
		merged.LastContactAt = patch.LastContactAt
	}
	if patch.NextFollowupAt != nil {
		merged.NextFollowupAt = patch.NextFollowupAt
	}
	if patch.EscrowTotal != nil {
		merged.EscrowTotal = patch.EscrowTotal
	}
	if patch.EscrowTotalOverride != nil {
		merged.EscrowTotalOverride = patch.EscrowTotalOverride
	}
	if patch.EscrowCurrency != nil {
		merged.EscrowCurrency = patch.EscrowCurrency
	}
	return merged
}

// MarshalOrderMetadata сериализует бэг обратно в JSONB-представление.
// Слияние всегда считается целиком до записи, частичных записей не бывает.
func MarshalOrderMetadata(meta models.OrderMetadata) (json.RawMessage, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать метаданные заказа")
	}
	return raw, nil
}
