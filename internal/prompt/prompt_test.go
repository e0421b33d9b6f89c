package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/dentassist/internal/providers"
)

func TestSystemGreetingVariant(t *testing.T) {
	first := System(true)
	if !strings.Contains(first, "Bienvenido a la Clínica Bocas y Boquitas") {
		t.Error("first-turn prompt missing greeting instruction")
	}

	later := System(false)
	if strings.Contains(later, "Bienvenido a la Clínica") {
		t.Error("later-turn prompt still instructs greeting")
	}
	if !strings.Contains(later, "NO repitas saludo") {
		t.Error("later-turn prompt missing no-greeting instruction")
	}

	for _, p := range []string{first, later} {
		if !strings.Contains(p, HandoffMarker) {
			t.Error("prompt missing handoff marker instruction")
		}
	}
}

func TestSummaryUserContentLabelsSpeakers(t *testing.T) {
	got := SummaryUserContent([]providers.Message{
		{Role: providers.RoleUser, Content: "hola"},
		{Role: providers.RoleAssistant, Content: "buenas"},
	})
	if !strings.Contains(got, "Paciente: hola") {
		t.Errorf("missing patient line in %q", got)
	}
	if !strings.Contains(got, "Bot: buenas") {
		t.Errorf("missing bot line in %q", got)
	}
}

func TestOperatorNotificationLayout(t *testing.T) {
	at := time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC)
	got := OperatorNotification("573001112233", "resumen aquí", at)

	for _, want := range []string{"🦷", "wa.me/573001112233", "resumen aquí", "5/3/2025"} {
		if !strings.Contains(got, want) {
			t.Errorf("notification missing %q:\n%s", want, got)
		}
	}

	degraded := DegradedNotification("573001112233", at)
	if !strings.Contains(degraded, "Error generando resumen") {
		t.Error("degraded notification missing fallback text")
	}
}
