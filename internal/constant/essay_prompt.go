package constant

// Essay composer conversation texts
const (
	EssayStructureQuestion = "¡Claro! Puedo ayudarte a crear un ensayo. ¿Qué estructura prefieres?"

	EssayClassicLabel = "Inicio, Nudo y Desenlace"
	EssayClassicReply = "Elegí la estructura de Inicio, Nudo y Desenlace."

	EssayStandardLabel = "Formato Académico Estándar"
	EssayStandardReply = "Elegí el formato académico estándar."

	EssayTopicQuestion = "Excelente. Ahora, por favor, introduce el tema para tu ensayo."

	// %s: topic
	EssayStartedText = `Comenzando la redacción del ensayo sobre: *"%s"*`

	EssayErrorText = "Hubo un error al generar el ensayo. Por favor, intenta de nuevo."
)

// Essay generation prompts
const (
	// %s: topic
	EssayOutlinePrompt = `Generate an outline for the topic: "%s"`

	// %s: topic
	EssayClassicOutlinePrompt = `Generate a detailed outline for an essay on the topic: "%s", structured with three main sections: 'Introducción', 'Desarrollo', and 'Conclusión'.`

	EssayOutlineFormatInstruction = "Respond with ONLY a single ```json fenced block containing an object with one key \"outline\": an array of objects with \"title\" (string) and \"points\" (array of strings). No other text."

	// %s: section title, %s: topic, %s: outline JSON
	EssaySectionPrompt = `Write the "%s" section for the essay on "%s", following this outline: %s`

	// %s: topic, %s: outline JSON
	EssayReferencesPrompt = `Generate a list of references or a bibliography for the essay on "%s" with the following structure: %s`

	EssayReferencesFormatInstruction = "Respond with a single ```json fenced block containing an object with one key \"references\": an array of strings."
)

// Markdown export of a finished essay
const (
	// %s: topic
	EssayMarkdownHeading    = "# Ensayo sobre: %s\n\n"
	EssayMarkdownReferences = "## Referencias\n\n"
)
