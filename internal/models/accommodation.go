package models

type Accommodation struct {
	ID       int64   `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Address  string  `yaml:"address" json:"address"`
	Price    float64 `yaml:"price" json:"price"`
	Capacity int64   `yaml:"capacity" json:"capacity"`
}
