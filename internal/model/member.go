package model

// Member is a person belonging to the operating organization.
type Member struct {
	Email   string   `mapstructure:"email" yaml:"email" json:"email"`
	Name    string   `mapstructure:"name" yaml:"name" json:"name"`
	Aliases []string `mapstructure:"aliases" yaml:"aliases" json:"aliases,omitempty"`
}
