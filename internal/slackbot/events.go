package slackbot

import "strings"

// Inbound events arrive as one of two explicit variants: a Command from
// the /takes slash command, or a FileUpload from a top-level message in
// the listen channel.

// Command is a parsed /takes invocation.
type Command struct {
	UserID     string
	ChannelID  string
	Subcommand string
	Args       []string
}

// UploadedFile is the subset of a Slack file the upload flow needs.
type UploadedFile struct {
	ID       string
	Mimetype string
}

// FileUpload is a top-level message in the listen channel, possibly
// carrying media.
type FileUpload struct {
	UserID  string
	Channel string
	TS      string
	Text    string
	Files   []UploadedFile
}

// ParseCommand splits slash-command text into a subcommand plus args. An
// empty invocation reads as "help".
func ParseCommand(userID, channelID, text string) Command {
	fields := strings.Fields(text)
	cmd := Command{UserID: userID, ChannelID: channelID, Subcommand: "help"}
	if len(fields) > 0 {
		cmd.Subcommand = strings.ToLower(fields[0])
		cmd.Args = fields[1:]
	}
	return cmd
}

// IsMedia reports whether the file should be collected as completion
// media.
func (f UploadedFile) IsMedia() bool {
	return strings.HasPrefix(f.Mimetype, "image/") || strings.HasPrefix(f.Mimetype, "video/")
}
