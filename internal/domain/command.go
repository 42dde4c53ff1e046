package domain

// Command is one literal write issued on the control session.
//
// Sync marks writes the instrument applies asynchronously; they must be
// followed by an operation-complete query before the next write goes out.
type Command struct {
	Text string `json:"text"`
	Sync bool   `json:"sync"`
}

// Write builds a command that needs no completion wait.
func Write(text string) Command { return Command{Text: text} }

// SyncWrite builds a command that must be followed by *OPC?.
func SyncWrite(text string) Command { return Command{Text: text, Sync: true} }
