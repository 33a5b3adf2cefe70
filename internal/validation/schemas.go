package validation

import (
	"sleepwise/internal/apperr"
	"sleepwise/internal/domain"
)

type profileInput struct {
	Name   *string  `json:"name" validate:"required,min=1"`
	Gender *string  `json:"gender" validate:"required,oneof=Male Female"`
	Age    *float64 `json:"age" validate:"required,integer,min=1,max=100"`
	Height *float64 `json:"height" validate:"required,gt=0"`
	Weight *float64 `json:"weight" validate:"required,gt=0"`
}

type profilePatchInput struct {
	Name   *string  `json:"name" validate:"omitempty,min=1"`
	Gender *string  `json:"gender" validate:"omitempty,oneof=Male Female"`
	Age    *float64 `json:"age" validate:"omitempty,integer,min=1,max=100"`
	Height *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight *float64 `json:"weight" validate:"omitempty,gt=0"`
}

type healthMetricsInput struct {
	Gender *string  `json:"gender" validate:"omitempty,oneof=Male Female"`
	Age    *float64 `json:"age" validate:"omitempty,integer,min=1,max=100"`
	Height *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight *float64 `json:"weight" validate:"omitempty,gt=0"`

	SleepDuration    *float64 `json:"sleepDuration" validate:"required,gt=0"`
	PhysicalActivity *float64 `json:"physicalActivity" validate:"required,integer,min=0"`
	RestingHeartrate *float64 `json:"restingHeartrate" validate:"omitempty,integer,min=30,max=200"`
	DailySteps       *float64 `json:"dailySteps" validate:"omitempty,integer,min=0"`
	StressLevel      *float64 `json:"stressLevel" validate:"omitempty,integer,min=1,max=10"`
}

// ParseProfile validates a full profile for onboarding. UID and ID are left
// for the caller to assign.
func ParseProfile(body []byte) (*domain.Profile, error) {
	o, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	in := profileInput{
		Name:   o.str("name"),
		Gender: o.str("gender"),
		Age:    o.num("age"),
		Height: o.num("height"),
		Weight: o.num("weight"),
	}
	if err := o.check(&in); err != nil {
		return nil, err
	}
	return &domain.Profile{
		Name:   *in.Name,
		Gender: domain.Gender(*in.Gender),
		Age:    int(*in.Age),
		Height: *in.Height,
		Weight: *in.Weight,
	}, nil
}

// ParseProfilePatch validates a partial update; at least one known field must be set.
func ParseProfilePatch(body []byte) (domain.ProfilePatch, error) {
	o, err := decodeObject(body)
	if err != nil {
		return domain.ProfilePatch{}, err
	}
	in := profilePatchInput{
		Name:   o.str("name"),
		Gender: o.str("gender"),
		Age:    o.num("age"),
		Height: o.num("height"),
		Weight: o.num("weight"),
	}
	if err := o.check(&in); err != nil {
		return domain.ProfilePatch{}, err
	}
	patch := domain.ProfilePatch{
		Name:   in.Name,
		Gender: genderPtr(in.Gender),
		Age:    intPtr(in.Age),
		Height: in.Height,
		Weight: in.Weight,
	}
	if patch.Empty() {
		return domain.ProfilePatch{}, apperr.Validation(apperr.Issue{Reason: "at least one field required"})
	}
	return patch, nil
}

// ParseHealthMetrics validates one insight submission.
func ParseHealthMetrics(body []byte) (domain.HealthMetrics, error) {
	o, err := decodeObject(body)
	if err != nil {
		return domain.HealthMetrics{}, err
	}
	in := healthMetricsInput{
		Gender:           o.str("gender"),
		Age:              o.num("age"),
		Height:           o.num("height"),
		Weight:           o.num("weight"),
		SleepDuration:    o.num("sleepDuration"),
		PhysicalActivity: o.num("physicalActivity"),
		RestingHeartrate: o.num("restingHeartrate"),
		DailySteps:       o.num("dailySteps"),
		StressLevel:      o.num("stressLevel"),
	}
	if err := o.check(&in); err != nil {
		return domain.HealthMetrics{}, err
	}
	return domain.HealthMetrics{
		Gender:           genderPtr(in.Gender),
		Age:              intPtr(in.Age),
		Height:           in.Height,
		Weight:           in.Weight,
		SleepDuration:    *in.SleepDuration,
		PhysicalActivity: int(*in.PhysicalActivity),
		RestingHeartrate: intPtr(in.RestingHeartrate),
		DailySteps:       intPtr(in.DailySteps),
		StressLevel:      intPtr(in.StressLevel),
	}, nil
}

func genderPtr(s *string) *domain.Gender {
	if s == nil {
		return nil
	}
	g := domain.Gender(*s)
	return &g
}
