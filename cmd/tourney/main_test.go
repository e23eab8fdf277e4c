package main

import (
	"testing"

	"github.com/derekprior/tourney/internal/config"
	"github.com/derekprior/tourney/internal/stage"
)

func TestConfigTemplateLoads(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte(configTemplate))
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if _, err := stage.ResolveStructure(len(cfg.Teams)); err != nil {
		t.Errorf("template team count: %v", err)
	}
	if cfg.ScheduleConfig().SlotsPerDay() != 5 {
		t.Errorf("slots per day = %d, want 5", cfg.ScheduleConfig().SlotsPerDay())
	}
}

func TestRunStructure(t *testing.T) {
	if err := runStructure("10"); err != nil {
		t.Errorf("runStructure(10) error: %v", err)
	}
	for _, arg := range []string{"ten", "1", "30"} {
		if err := runStructure(arg); err == nil {
			t.Errorf("runStructure(%q) should fail", arg)
		}
	}
}
