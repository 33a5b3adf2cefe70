package domain

import (
	"encoding/json"
	"math"
	"time"
)

// HealthMetrics 一次提交的健康数据（已校验）
// 人口学字段可选，缺失时由 profile 补齐
type HealthMetrics struct {
	Gender *Gender  `json:"gender,omitempty"`
	Age    *int     `json:"age,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`

	SleepDuration    float64 `json:"sleepDuration"`    // hours
	PhysicalActivity int     `json:"physicalActivity"` // minutes
	RestingHeartrate *int    `json:"restingHeartrate,omitempty"`
	DailySteps       *int    `json:"dailySteps,omitempty"`
	StressLevel      *int    `json:"stressLevel,omitempty"`
}

// HasDemographics reports whether all four demographic fields were submitted.
func (m HealthMetrics) HasDemographics() bool {
	return m.Gender != nil && m.Age != nil && m.Height != nil && m.Weight != nil
}

// ResolveDemographics 逐字段合并：payload 优先，其次 profile
// profile 可以为 nil（仅当 HasDemographics 为 true 时）
func (m HealthMetrics) ResolveDemographics(profile *Profile) Demographics {
	var d Demographics
	if profile != nil {
		d = profile.Demographics()
	}
	if m.Gender != nil {
		d.Gender = *m.Gender
	}
	if m.Age != nil {
		d.Age = *m.Age
	}
	if m.Height != nil {
		d.Height = *m.Height
	}
	if m.Weight != nil {
		d.Weight = *m.Weight
	}
	return d
}

// Prediction 预测服务的输出
type Prediction struct {
	SleepQuality  float64
	DisorderLevel *float64
}

// Insight insights 表的一行，写入后不可变
type Insight struct {
	ID   string    `json:"id"`
	UID  string    `json:"uid"`
	Date time.Time `json:"date"`

	// payload 中提交的人口学字段（不回填 profile 的值）
	Gender *Gender  `json:"gender"`
	Age    *int     `json:"age"`
	Height *float64 `json:"height"`
	Weight *float64 `json:"weight"`

	SleepDuration    float64 `json:"sleepDuration"`
	PhysicalActivity int     `json:"physicalActivity"`
	RestingHeartrate *int    `json:"restingHeartrate"`
	DailySteps       *int    `json:"dailySteps"`
	StressLevel      *int    `json:"stressLevel"`

	SleepQuality  float64  `json:"sleepQuality"`
	DisorderLevel *float64 `json:"disorderLevel,omitempty"`
}

// NewInsight assembles the record persisted for one submission.
func NewInsight(id, uid string, at time.Time, m HealthMetrics, p Prediction) *Insight {
	return &Insight{
		ID:               id,
		UID:              uid,
		Date:             at.UTC(),
		Gender:           m.Gender,
		Age:              m.Age,
		Height:           m.Height,
		Weight:           m.Weight,
		SleepDuration:    m.SleepDuration,
		PhysicalActivity: m.PhysicalActivity,
		RestingHeartrate: m.RestingHeartrate,
		DailySteps:       m.DailySteps,
		StressLevel:      m.StressLevel,
		SleepQuality:     p.SleepQuality,
		DisorderLevel:    p.DisorderLevel,
	}
}

// MarshalJSON adds the derived disorder label next to the raw level.
func (i Insight) MarshalJSON() ([]byte, error) {
	type alias Insight
	out := struct {
		alias
		Disorder string `json:"disorder,omitempty"`
	}{alias: alias(i)}
	if i.DisorderLevel != nil {
		out.Disorder = DisorderLabel(*i.DisorderLevel)
	}
	return json.Marshal(out)
}

// 模型训练时的类别编码
const (
	DisorderNone       = "None"
	DisorderInsomnia   = "Insomnia"
	DisorderSleepApnea = "Sleep Apnea"
)

var disorderCodes = []struct {
	label string
	code  float64
}{
	{DisorderNone, 0},
	{DisorderInsomnia, 1000},
	{DisorderSleepApnea, 2000},
}

// DisorderLabel maps a regressed disorder level to the nearest class label.
func DisorderLabel(level float64) string {
	best := disorderCodes[0]
	for _, c := range disorderCodes[1:] {
		if math.Abs(level-c.code) < math.Abs(level-best.code) {
			best = c
		}
	}
	return best.label
}

// PageSize 每页记录数上限
const PageSize = 100

// InsightPage 游标分页结果；LastKey 为 nil 表示没有更多
type InsightPage struct {
	Results []*Insight `json:"results"`
	LastKey *string    `json:"lastKey"`
}

// InsightEvent 记录写入成功后对外发布的事件
type InsightEvent struct {
	Type          string    `json:"type"`
	InsightID     string    `json:"insight_id"`
	UID           string    `json:"uid"`
	SleepQuality  float64   `json:"sleep_quality"`
	DisorderLevel *float64  `json:"disorder_level,omitempty"`
	Date          time.Time `json:"date"`
}

const EventInsightCreated = "insight.created"

// NewInsightCreatedEvent builds the event published after persistence.
func NewInsightCreatedEvent(in *Insight) InsightEvent {
	return InsightEvent{
		Type:          EventInsightCreated,
		InsightID:     in.ID,
		UID:           in.UID,
		SleepQuality:  in.SleepQuality,
		DisorderLevel: in.DisorderLevel,
		Date:          in.Date,
	}
}
