package entities

import "time"

// Instruction is an administrator-authored prompt fragment injected into the
// automated-reply system prompt. Scoped to one or more platforms and a
// category; priority orders fragments when several apply (higher first).
type Instruction struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Platforms []string  `json:"platforms"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppliesTo reports whether the instruction is scoped to the given platform.
// An empty platform list means the instruction applies everywhere.
func (i *Instruction) AppliesTo(platform string) bool {
	if len(i.Platforms) == 0 {
		return true
	}
	for _, p := range i.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}
