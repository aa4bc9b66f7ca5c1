// Package notify carries transient toast messages from the stage components
// to whatever is presenting them.
package notify

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelRetry   Level = "retry"
	LevelError   Level = "error"
)

type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

func Success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func Info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func Retry(text string) Notice   { return Notice{Level: LevelRetry, Text: text} }
func Error(text string) Notice   { return Notice{Level: LevelError, Text: text} }

// Func receives notices. A nil Func drops them.
type Func func(Notice)

func (f Func) Send(n Notice) {
	if f != nil {
		f(n)
	}
}
