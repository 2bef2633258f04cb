package entity

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Personality string

const (
	PersonalityDefault     Personality = "default"
	PersonalityAmable      Personality = "amable"
	PersonalityDirecto     Personality = "directo"
	PersonalityDivertido   Personality = "divertido"
	PersonalityInteligente Personality = "inteligente"
)

type Settings struct {
	Theme       Theme       `json:"theme"`
	Personality Personality `json:"personality"`
	Profession  string      `json:"profession"`
}

func DefaultSettings() Settings {
	return Settings{Theme: ThemeDark, Personality: PersonalityDefault, Profession: ""}
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

func (p Personality) Valid() bool {
	switch p {
	case PersonalityDefault, PersonalityAmable, PersonalityDirecto, PersonalityDivertido, PersonalityInteligente:
		return true
	}
	return false
}
