package repository

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/podium/internal/domain/model"
)

// Fixture is the YAML seed for the memory store. Dates use YYYY-MM-DD.
type Fixture struct {
	Classes  []FixtureClass   `koanf:"classes"`
	Students []FixtureStudent `koanf:"students"`
	Logs     []FixtureLog     `koanf:"logs"`
	Trials   []FixtureTrial   `koanf:"trials"`
	Views    []FixtureView    `koanf:"views"`
}

// FixtureClass seeds a class.
type FixtureClass struct {
	ID     string `koanf:"id"`
	Name   string `koanf:"name"`
	Avatar string `koanf:"avatar"`
	League string `koanf:"league"`
}

// FixtureStudent seeds a student. League defaults to the class league.
type FixtureStudent struct {
	ID      string `koanf:"id"`
	Name    string `koanf:"name"`
	Avatar  string `koanf:"avatar"`
	ClassID string `koanf:"class_id"`
	League  string `koanf:"league"`
}

// FixtureLog seeds a star log entry.
type FixtureLog struct {
	StudentID string    `koanf:"student_id"`
	Amount    float64   `koanf:"amount"`
	Reason    string    `koanf:"reason"`
	Date      time.Time `koanf:"date"`
}

// FixtureTrial seeds a trial. Either score/max or tier is set.
type FixtureTrial struct {
	StudentID string    `koanf:"student_id"`
	Date      time.Time `koanf:"date"`
	Score     *float64  `koanf:"score"`
	Max       *float64  `koanf:"max"`
	Tier      string    `koanf:"tier"`
}

// FixtureView seeds an already watched ceremony.
type FixtureView struct {
	Scope string `koanf:"scope"`
	Month string `koanf:"month"`
	Kind  string `koanf:"kind"`
}

// LoadFixtureFile reads a fixture from a YAML file.
func LoadFixtureFile(path string) (*Fixture, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFixture, path, err)
	}
	return decodeFixture(k.Raw())
}

// ParseFixture reads a fixture from YAML bytes.
func ParseFixture(data []byte) (*Fixture, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	return decodeFixture(raw)
}

func decodeFixture(raw map[string]interface{}) (*Fixture, error) {
	var f Fixture
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.DateOnly),
		Result:           &f,
		TagName:          "koanf",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	classes := make(map[string]bool, len(f.Classes))
	for _, c := range f.Classes {
		if c.ID == "" || c.League == "" {
			return fmt.Errorf("%w: class %q needs id and league", ErrFixture, c.ID)
		}
		classes[c.ID] = true
	}
	for _, s := range f.Students {
		if s.ID == "" || !classes[s.ClassID] {
			return fmt.Errorf("%w: student %q has unknown class %q", ErrFixture, s.ID, s.ClassID)
		}
	}
	for _, v := range f.Views {
		if _, err := model.ParseMonthKey(v.Month); err != nil {
			return fmt.Errorf("%w: view month: %w", ErrFixture, err)
		}
		if _, err := model.ParseKind(v.Kind); err != nil {
			return fmt.Errorf("%w: view kind: %w", ErrFixture, err)
		}
	}
	return nil
}
