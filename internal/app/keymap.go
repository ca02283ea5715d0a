package app

// Key binding constants used in handleKey.
const (
	KeyQuit         = "ctrl+c"
	KeyTab          = "tab"
	KeyShiftTab     = "shift+tab"
	KeyUp           = "up"
	KeyDown         = "down"
	KeyEnter        = "enter"
	KeySubmit       = "ctrl+s"
	KeyHint         = "ctrl+t"
	KeyFollowUp     = "ctrl+y"
	KeyReport       = "ctrl+g"
	KeyResetCode    = "ctrl+r"
	KeyLanguage     = "ctrl+l"
	KeyNext         = "pgdown"
	KeyPrevious     = "pgup"
	KeyComplete     = "ctrl+x"
	KeyReconnect    = "ctrl+o"
	KeyToggleVoice  = "f2"
	KeyToggleReport = "f3"
	KeyCancel       = "f10"
)
