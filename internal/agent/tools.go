package agent

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknownTool is returned for tool names outside the active tool set.
var ErrUnknownTool = errors.New("unknown tool")

// Tool names understood by the executor.
const (
	ToolCreateFile  = "create_file"
	ToolEditFile    = "edit_file"
	ToolReadFile    = "read_file"
	ToolListFiles   = "list_files"
	ToolSetBookInfo = "set_book_info"
	ToolDeleteFile  = "delete_file"
	ToolRespond     = "respond"
	ToolFinish      = "finish"
)

// Mode selects the tool set and prompt of a loop.
type Mode string

const (
	// ModeGenerate writes a new book from a topic.
	ModeGenerate Mode = "generate"
	// ModeEdit changes an existing book through a chat session.
	ModeEdit Mode = "edit"
)

var toolSets = map[Mode][]string{
	ModeGenerate: {ToolCreateFile, ToolEditFile, ToolReadFile, ToolListFiles, ToolSetBookInfo, ToolFinish},
	ModeEdit:     {ToolCreateFile, ToolEditFile, ToolReadFile, ToolListFiles, ToolSetBookInfo, ToolDeleteFile, ToolRespond},
}

// Tools returns the tool names available in the mode.
func (m Mode) Tools() []string {
	return slices.Clone(toolSets[m])
}

// Allows reports whether the named tool belongs to the mode's tool set.
func (m Mode) Allows(name string) bool {
	return slices.Contains(toolSets[m], name)
}

// Action is the typed form of a tool call. The set of implementations is closed.
type Action interface {
	ToolName() string
	isAction()
}

// CreateFile appends a new page.
type CreateFile struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// EditFile replaces the first occurrence of OldContent in a page.
type EditFile struct {
	Filename   string `json:"filename"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
}

// ReadFile returns the content of a page.
type ReadFile struct {
	Filename string `json:"filename"`
}

// ListFiles lists the known pages.
type ListFiles struct{}

// SetBookInfo updates the book title and description.
type SetBookInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DeleteFile removes a page.
type DeleteFile struct {
	Filename string `json:"filename"`
}

// Respond ends an editing loop with a message for the user.
type Respond struct {
	Message string `json:"message"`
}

// Finish ends a generation loop.
type Finish struct {
	Summary string `json:"summary"`
}

func (CreateFile) ToolName() string  { return ToolCreateFile }
func (EditFile) ToolName() string    { return ToolEditFile }
func (ReadFile) ToolName() string    { return ToolReadFile }
func (ListFiles) ToolName() string   { return ToolListFiles }
func (SetBookInfo) ToolName() string { return ToolSetBookInfo }
func (DeleteFile) ToolName() string  { return ToolDeleteFile }
func (Respond) ToolName() string     { return ToolRespond }
func (Finish) ToolName() string      { return ToolFinish }

func (CreateFile) isAction()  {}
func (EditFile) isAction()    {}
func (ReadFile) isAction()    {}
func (ListFiles) isAction()   {}
func (SetBookInfo) isAction() {}
func (DeleteFile) isAction()  {}
func (Respond) isAction()     {}
func (Finish) isAction()      {}

// DecodeAction converts a tool call into its typed action, restricted to the
// tool set of mode. Scalar arguments are coerced to strings.
func DecodeAction(mode Mode, call ToolCall) (Action, error) {
	if !mode.Allows(call.Name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	var (
		action Action
		err    error
	)
	switch call.Name {
	case ToolCreateFile:
		action, err = decodeArgs[CreateFile](call.Arguments)
	case ToolEditFile:
		action, err = decodeArgs[EditFile](call.Arguments)
	case ToolReadFile:
		action, err = decodeArgs[ReadFile](call.Arguments)
	case ToolListFiles:
		action = ListFiles{}
	case ToolSetBookInfo:
		action, err = decodeArgs[SetBookInfo](call.Arguments)
	case ToolDeleteFile:
		action, err = decodeArgs[DeleteFile](call.Arguments)
	case ToolRespond:
		action, err = decodeArgs[Respond](call.Arguments)
	case ToolFinish:
		action, err = decodeArgs[Finish](call.Arguments)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", call.Name, err)
	}
	return action, nil
}

func decodeArgs[T Action](args map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(args); err != nil {
		return out, err
	}
	return out, nil
}

// pageChanging reports whether a tool mutates page content.
func pageChanging(name string) bool {
	switch name {
	case ToolCreateFile, ToolEditFile, ToolDeleteFile:
		return true
	default:
		return false
	}
}
