package configs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mityay36/avito-bot/internal/constants"
	"github.com/mityay36/avito-bot/internal/core/domain"
)

// criteriaSchema - контракт файла критериев. Валидация до разбора отсекает
// опечатки в именах полей и значения неверного типа.
const criteriaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "max_price": {"type": "integer", "minimum": 0},
    "min_area": {"type": "number", "minimum": 0},
    "max_metro_time": {"type": "integer", "minimum": 0},
    "rooms": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0}
    },
    "target_stations": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "preferred_repair": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  },
  "additionalProperties": false
}`

var compiledCriteriaSchema = jsonschema.MustCompileString("criteria.json", criteriaSchema)

// criteriaFileDTO - представление файла критериев на диске.
type criteriaFileDTO struct {
	MaxPrice        *int64   `json:"max_price"`
	MinArea         *float64 `json:"min_area"`
	MaxMetroTime    *int     `json:"max_metro_time"`
	Rooms           []int    `json:"rooms"`
	TargetStations  []string `json:"target_stations"`
	PreferredRepair []string `json:"preferred_repair"`
}

// DefaultFilterCriteria возвращает критерии по умолчанию.
func DefaultFilterCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		MaxPriceMinor:     constants.DefaultMaxPrice,
		MinAreaSqm:        constants.DefaultMinArea,
		MaxWalkMinutes:    constants.DefaultMaxWalkMinutes,
		AllowedRoomCounts: append([]int(nil), constants.DefaultAllowedRooms...),
		TargetStations:    append([]string(nil), constants.DefaultTargetStations...),
		PreferredRepair:   append([]string(nil), constants.DefaultPreferredRepair...),
	}
}

// LoadFilterCriteria читает критерии из JSON-файла и накладывает их поверх
// значений по умолчанию. Пустой путь означает "только значения по умолчанию".
func LoadFilterCriteria(path string) (domain.FilterCriteria, error) {
	criteria := DefaultFilterCriteria()
	if strings.TrimSpace(path) == "" {
		return criteria, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return criteria, fmt.Errorf("criteria file %s: %w", path, err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return criteria, fmt.Errorf("criteria file %s is not valid JSON: %w", path, err)
	}
	if err := compiledCriteriaSchema.Validate(generic); err != nil {
		return criteria, fmt.Errorf("criteria file %s failed schema validation: %w", path, err)
	}

	var dto criteriaFileDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return criteria, fmt.Errorf("criteria file %s: %w", path, err)
	}

	if dto.MaxPrice != nil {
		criteria.MaxPriceMinor = *dto.MaxPrice
	}
	if dto.MinArea != nil {
		criteria.MinAreaSqm = *dto.MinArea
	}
	if dto.MaxMetroTime != nil {
		criteria.MaxWalkMinutes = *dto.MaxMetroTime
	}
	if len(dto.Rooms) > 0 {
		criteria.AllowedRoomCounts = dto.Rooms
	}
	if len(dto.TargetStations) > 0 {
		criteria.TargetStations = dto.TargetStations
	}
	if len(dto.PreferredRepair) > 0 {
		criteria.PreferredRepair = dto.PreferredRepair
	}

	return criteria, nil
}
