/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Seed is the initial contest content: participants and questions.
type Seed struct {
	Users     []User     `mapstructure:"users"`
	Questions []Question `mapstructure:"questions"`
}

// LoadSeed reads a seed file in any format viper understands (json, yaml,
// toml, ...), chosen by the file extension.
func LoadSeed(path string) (Seed, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}

	var seed Seed
	err := v.Unmarshal(&seed, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}

	if err := seed.normalize(); err != nil {
		return Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}

	return seed, nil
}

func (s *Seed) normalize() error {
	seen := make(map[int64]bool, len(s.Questions))
	for i := range s.Questions {
		q := &s.Questions[i]
		if q.ID < 1 {
			return fmt.Errorf("question ids are 1-based, got %d", q.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true

		if q.OriginalPoints == 0 {
			q.OriginalPoints = q.Points
		}
		if q.DecayFactor < 0 || q.DecayFactor >= 1 {
			return fmt.Errorf("question %d: decay factor %v out of range [0, 1)", q.ID, q.DecayFactor)
		}
	}

	emails := make(map[string]bool, len(s.Users))
	for i := range s.Users {
		u := &s.Users[i]
		if u.Email == "" {
			return fmt.Errorf("user %d has no email", i)
		}
		if emails[u.Email] {
			return fmt.Errorf("duplicate user %s", u.Email)
		}
		emails[u.Email] = true

		if u.Name == "" {
			u.Name = u.Email
		}
		if u.QuestionsAnswered != int64(len(u.Answers)) {
			return fmt.Errorf("user %s: questionsAnswered %d does not match %d log entries",
				u.Email, u.QuestionsAnswered, len(u.Answers))
		}
	}

	return nil
}
