package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool

	// Photo is set when the message carries an image attachment.
	Photo *Photo
}

// Photo describes an incoming image attachment. Caption travels separately
// from Message.Text on most platforms; the adapter folds it in here.
type Photo struct {
	FileID  string
	Caption string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, filePath, caption string) (MessageRef, error)

	// Download fetches an attachment by its platform file id into destPath.
	Download(ctx context.Context, fileID, destPath string) error
}
