package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	DefaultChatTitle = "Nuevo chat"

	// Title derivation for the first exchange of a chat
	ChatTitleMaxLength = 40
	ChatTitleEllipsis  = "..."
)

// Persistent store keys (single profile namespace)
const (
	StoreKeyChats        = "sam_ia_chats_guest"
	StoreKeyActiveChatID = "sam_ia_current_chat_id_guest"
	StoreKeySettings     = "sam-settings"
)

// User facing texts written into messages by the orchestrator
const (
	ConnectionErrorText = "Error de conexión. Por favor, revisa tu conexión a internet e inténtalo de nuevo."
	ImageErrorText      = "No se pudo generar la imagen. Vuelve a intentarlo más tarde."

	ImagePendingText   = "Generando imagen..."
	ImageGeneratedText = "He generado esta imagen para ti."
	ImageEditedText    = "Aquí está la imagen editada."

	ArtifactCreatedText = "He creado un componente interactivo para ti. Puedes verlo en la vista previa."

	MathConsoleStartLine = "[INFO] Math mode activated. Verifying prompt..."
	MathConsoleDoneLine  = "[INFO] Verification complete."

	CanvasDevPrelude     = "Modo Canvas Dev Activado"
	CanvasDevPreludeText = "Puedo generar componentes interactivos con HTML, CSS y JavaScript. Describe lo que quieres construir. Por ejemplo: <em>'Crea un formulario de inicio de sesión con un botón de pulso'</em>."
)
