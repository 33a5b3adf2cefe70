package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisorderLabel(t *testing.T) {
	cases := []struct {
		level float64
		want  string
	}{
		{-120, DisorderNone},
		{0, DisorderNone},
		{499, DisorderNone},
		{501, DisorderInsomnia},
		{1000, DisorderInsomnia},
		{1600, DisorderSleepApnea},
		{2600, DisorderSleepApnea},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DisorderLabel(c.level), "level %v", c.level)
	}
}

func TestResolveDemographics_PayloadWinsPerField(t *testing.T) {
	age := 40
	m := HealthMetrics{Age: &age, SleepDuration: 7}
	profile := &Profile{Gender: GenderFemale, Age: 30, Height: 165, Weight: 60}

	d := m.ResolveDemographics(profile)
	assert.Equal(t, Demographics{Gender: GenderFemale, Age: 40, Height: 165, Weight: 60}, d)
	assert.False(t, m.HasDemographics())
}

func TestProfilePatch_Apply(t *testing.T) {
	name := "Ann"
	weight := 55.5
	patch := ProfilePatch{Name: &name, Weight: &weight}
	require.False(t, patch.Empty())
	assert.True(t, ProfilePatch{}.Empty())

	p := &Profile{UID: "u1", Name: "A", Gender: GenderMale, Age: 30, Height: 170, Weight: 70}
	patch.Apply(p)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, 55.5, p.Weight)
	assert.Equal(t, 30, p.Age)
}

func TestInsight_MarshalIncludesDisorderLabel(t *testing.T) {
	level := 980.0
	in := NewInsight("id-1", "u1", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		HealthMetrics{SleepDuration: 6.5, PhysicalActivity: 30},
		Prediction{SleepQuality: 6.2, DisorderLevel: &level})

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "Insomnia", out["disorder"])
	assert.Equal(t, 6.2, out["sleepQuality"])
	assert.Nil(t, out["gender"])

	in.DisorderLevel = nil
	b, err = json.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "disorder")
}
