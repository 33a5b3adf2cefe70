package domain

// Gender 用户性别（与预测模型的编码保持一致）
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Profile users 表的一行，每个身份最多一条
type Profile struct {
	ID     string  `json:"-"`
	UID    string  `json:"uid"`
	Name   string  `json:"name"`
	Gender Gender  `json:"gender"`
	Age    int     `json:"age"`
	Height float64 `json:"height"` // cm
	Weight float64 `json:"weight"` // kg
}

// Demographics returns the four profile fields the prediction model consumes.
func (p *Profile) Demographics() Demographics {
	return Demographics{Gender: p.Gender, Age: p.Age, Height: p.Height, Weight: p.Weight}
}

// ProfilePatch 部分更新，nil 表示不修改
type ProfilePatch struct {
	Name   *string
	Gender *Gender
	Age    *int
	Height *float64
	Weight *float64
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Gender == nil && p.Age == nil && p.Height == nil && p.Weight == nil
}

// Apply copies every set field onto dst.
func (p ProfilePatch) Apply(dst *Profile) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Gender != nil {
		dst.Gender = *p.Gender
	}
	if p.Age != nil {
		dst.Age = *p.Age
	}
	if p.Height != nil {
		dst.Height = *p.Height
	}
	if p.Weight != nil {
		dst.Weight = *p.Weight
	}
}

// Demographics 预测所需的人口学字段
type Demographics struct {
	Gender Gender
	Age    int
	Height float64
	Weight float64
}
