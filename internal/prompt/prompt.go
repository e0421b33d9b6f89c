// Package prompt holds the conversational content fed to the reply
// gateway and the fixed user-facing strings. This is configuration data,
// not pipeline logic: nothing here influences control flow except the
// handoff marker constant.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/dentassist/internal/providers"
)

// HandoffMarker is the sentinel the model emits to escalate a conversation
// to the human coordinator. Matched case-insensitively by the pipeline.
const HandoffMarker = "[HUMANO]"

// Fixed user-facing messages (Spanish, the clinic's audience).
const (
	MsgGenerationRetry = "Disculpa, tuve un inconveniente técnico momentáneo. ¿Podrías repetir tu mensaje? 😊"
	MsgAudioTooLong    = "El audio es muy largo. ¿Podrías enviar uno más corto o escribir tu mensaje? 😊"
	MsgAudioFailed     = "Disculpa, no pude procesar el audio. ¿Podrías escribir tu mensaje? 😊"
	MsgConnectingHuman = "Ya te comunico con nuestra coordinadora para continuar 😊"
)

const greetingInstruction = `PRIMER MENSAJE: Siempre inicia con "Bienvenido a la Clínica Bocas y Boquitas 😊 ¿En qué puedo ayudarte?"`
const noGreetingInstruction = `NO es primer mensaje: Ve directo, NO repitas saludo`

// System returns the system prompt for one turn. firstTurn selects the
// greeting variant.
func System(firstTurn bool) string {
	greet := noGreetingInstruction
	if firstTurn {
		greet = greetingInstruction
	}
	return fmt.Sprintf(systemTemplate, greet)
}

// systemTemplate is the assistant's identity, pricing rules and transfer
// policy. Condensed clinic copy; the %s slot carries the greeting
// instruction.
const systemTemplate = `<identity>
Clínica Bocas y Boquitas - Piedecuesta, Santander. 30+ años de experiencia.

%s

Equipo: Dra. Zonia Tarazona (directora, ortodoncista, permanente), Dra. Lucía
Castellanos (ortodoncista), cirujanos, endodoncistas, odontopediatría y
periodoncia con citas programadas.

Rol: asesor natural que informa bien, recopila nombre y edad, y transfiere a
la coordinadora. Tono conversacional, nunca marketing agresivo.
</identity>

<response_structure>
MÁXIMO 5-6 líneas por mensaje. Separa en 2-3 mensajes con línea en blanco.
Pregunta el nombre antes de transferir.
</response_structure>

<pricing>
Evaluación general $80.000 (cubre TODO excepto ortodoncia, una sola por
persona). Evaluación de ortodoncia $100.000 (cubre TODO incluida ortodoncia).
Blanqueamiento y limpieza se agendan directo sin evaluación.
Precios SIEMPRE aproximados: cada caso es diferente, la evaluación da el
precio exacto. Financiamos sin intereses.
</pricing>

<transfer>
Transfiere cuando: tiene nombre y quiere agendar; urgencia (dolor, sangrado);
es paciente actual; pide hablar con la coordinadora; frustración detectada.
SIEMPRE responde algo empático ANTES de terminar con ` + HandoffMarker + ` en una línea
final. NO respondas después del marcador.
</transfer>`

// SummaryInstruction asks the gateway for a concise coordinator-facing
// summary of a conversation.
const SummaryInstruction = `Eres un asistente que prepara resúmenes CONCISOS para la coordinadora dental.

FORMATO OBLIGATORIO:

📋 RESUMEN:
[2-3 oraciones: qué quiere el paciente, contexto importante]

🎯 DATOS CLAVE:
• Nombre: [nombre o "No proporcionó"]
• Edad: [edad o "No proporcionó"]
• Servicio: [ortodoncia/diseño/limpieza/etc o "paciente actual"]
• Urgencia: [Alta/Media/Baja]

💬 ACCIÓN RECOMENDADA:
[1-2 líneas: qué hacer específicamente]

SÉ CONCISO. La coordinadora necesita información útil rápida.`

// SummaryUserContent renders a conversation history as the user message of
// a summarization request.
func SummaryUserContent(history []providers.Message) string {
	var b strings.Builder
	b.WriteString("Conversación completa:\n\n")
	for i, m := range history {
		speaker := "Bot"
		if m.Role == providers.RoleUser {
			speaker = "Paciente"
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", speaker, m.Content)
	}
	return b.String()
}

// formatStamp renders the es-CO style notification timestamp. Go's layout
// tokens cannot produce the "a. m."/"p. m." meridian, so it is appended by
// hand.
func formatStamp(at time.Time) string {
	meridiem := "a. m."
	if at.Hour() >= 12 {
		meridiem = "p. m."
	}
	return at.Format("2/1/2006, 3:04:05") + " " + meridiem
}

// OperatorNotification formats the coordinator alert for a handed-off
// conversation.
func OperatorNotification(phone, summary string, at time.Time) string {
	return fmt.Sprintf(`🦷 *NUEVO PACIENTE REQUIERE ATENCIÓN*

📱 wa.me/%s

%s

────────────────
⏰ %s`, phone, summary, formatStamp(at))
}

// DegradedNotification is the fallback alert when summarization failed.
func DegradedNotification(phone string, at time.Time) string {
	return fmt.Sprintf(`🦷 *NUEVO PACIENTE REQUIERE ATENCIÓN*

📱 wa.me/%s

⚠️ Error generando resumen automático.
Revisar conversación directamente.

────────────────
⏰ %s`, phone, formatStamp(at))
}
