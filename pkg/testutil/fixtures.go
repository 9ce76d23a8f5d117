package testutil

import (
	"fmt"

	"inclusao/internal/registration/models"
)

// Phone returns a distinct well-formed phone for index n.
func Phone(n int) string {
	return fmt.Sprintf("(11) 9%04d-%04d", n/10000%10000, n%10000)
}

// NewRegistrations returns n valid registrations with distinct phones,
// named so that ordering by name reverses insertion order.
func NewRegistrations(n int) []models.NewRegistration {
	out := make([]models.NewRegistration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.NewRegistration{
			Name:  fmt.Sprintf("Pessoa %c Teste", rune('Z'-i%26)),
			Phone: Phone(i + 1),
		})
	}
	return out
}
