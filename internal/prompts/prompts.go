// Package prompts holds the classification prompt templates.
package prompts

import (
	"strings"
	"time"
)

// NoNotes replaces an empty notes field in the rendered prompt.
const NoNotes = "No hay notas adicionales"

// DateLayout is the format used for the creation date inside the prompt.
const DateLayout = "2006-01-02 15:04:05"

// SystemPrompt sets the model's role.
const SystemPrompt = `Eres un experto en análisis de incidencias técnicas de sistemas IT.
Tu tarea es analizar incidencias y determinar su causa raíz basándote en el resumen y las notas proporcionadas.

Debes ser preciso, técnico y proporcionar razonamientos claros basados en patrones conocidos de fallos en sistemas IT.`

// TaskPrompt is the per-ticket instruction. Placeholders are substituted by
// Render.
const TaskPrompt = `Analiza la siguiente incidencia y determina su causa raíz más probable:

**Ticket ID:** {ticket_id}
**Resumen:** {resumen}
**Notas:** {notas}
**Fecha de Creación:** {fecha_creacion}

Basándote en la información proporcionada, identifica:

1. **Causa Raíz Principal**: La causa más probable del problema
2. **Nivel de Confianza**: Tu nivel de confianza en esta clasificación (0.0 a 1.0)
3. **Razonamiento**: Explicación técnica detallada de por qué identificaste esta causa
4. **Keywords Detectadas**: Palabras clave técnicas relevantes encontradas en la descripción
5. **Causas Alternativas**: Otras posibles causas ordenadas por probabilidad (máximo 3)

**Categorías de Causas Raíz Comunes:**
- Error de Configuración
- Problema de Red/Conectividad
- Fallo de Hardware
- Error de Software/Bug
- Problema de Rendimiento
- Error de Usuario
- Problema de Seguridad
- Fallo de Integración
- Problema de Datos/Base de Datos
- Timeout/Latencia
- Problema de Memoria/Recursos
- Error de Despliegue
- Otro (especificar)

Responde en formato JSON con la siguiente estructura:
{
    "causa_raiz_predicha": "nombre de la causa",
    "confianza": 0.85,
    "razonamiento": "explicación detallada...",
    "keywords_detectadas": ["keyword1", "keyword2", "keyword3"],
    "causas_alternativas": [
        {"causa": "causa alternativa 1", "probabilidad": 0.10},
        {"causa": "causa alternativa 2", "probabilidad": 0.05}
    ]
}

Sé específico y técnico en tu análisis.`

// FormatInstructions describes the output schema appended to the task prompt.
const FormatInstructions = `The output should be formatted as a JSON instance that conforms to the JSON schema below.

Here is the output schema:
` + "```" + `
{"properties": {"causa_raiz_predicha": {"description": "Causa raíz principal identificada", "type": "string"}, "confianza": {"description": "Nivel de confianza en la clasificación (0.0 a 1.0)", "type": "number"}, "razonamiento": {"description": "Explicación detallada del razonamiento", "type": "string"}, "keywords_detectadas": {"description": "Keywords técnicas detectadas", "type": "array", "items": {"type": "string"}}, "causas_alternativas": {"description": "Causas alternativas posibles", "type": "array", "items": {"type": "object", "properties": {"causa": {"type": "string"}, "probabilidad": {"type": "number"}}, "required": ["causa", "probabilidad"]}}}, "required": ["causa_raiz_predicha", "confianza", "razonamiento", "keywords_detectadas", "causas_alternativas"]}
` + "```"

// Messages is a rendered two-part prompt.
type Messages struct {
	System string
	User   string
}

// Render substitutes the ticket fields into the templates.
func Render(ticketID, summary, notes string, createdAt time.Time) Messages {
	if strings.TrimSpace(notes) == "" {
		notes = NoNotes
	}
	r := strings.NewReplacer(
		"{ticket_id}", ticketID,
		"{resumen}", summary,
		"{notas}", notes,
		"{fecha_creacion}", createdAt.Format(DateLayout),
	)
	return Messages{
		System: SystemPrompt,
		User:   r.Replace(TaskPrompt) + "\n\n" + FormatInstructions,
	}
}
