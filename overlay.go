package docview

import (
	"errors"

	"github.com/gobeaver/docview/filetype"
)

// MessageKey identifies the message shown in place of a document that
// cannot be displayed
type MessageKey string

// Overlay messages
const (
	MessageNone           MessageKey = ""
	MessageFormatInfoDocx MessageKey = "formatInfoDocx"
	MessageFormatInfoPPTx MessageKey = "formatInfoPPTx"
	MessageSupportTypes   MessageKey = "supportFileTypes"
	MessagePluginDisabled MessageKey = "pluginDisabled"
	MessageSomethingWrong MessageKey = "somethingWrong"
	MessageNoFileSelected MessageKey = "noFileSelected"
)

var messageText = map[MessageKey]string{
	MessageFormatInfoDocx: "Legacy Word documents (.doc) cannot be displayed. Save the file as .docx and open it again.",
	MessageFormatInfoPPTx: "PowerPoint presentations cannot be displayed. Export the presentation to PDF and open it again.",
	MessageSupportTypes:   "This file type is not supported. Supported types are PDF, Word (.docx), Excel (.xls, .xlsx), images and e-books.",
	MessagePluginDisabled: "The viewer for this file type is disabled.",
	MessageSomethingWrong: "Something went wrong while opening the file.",
	MessageNoFileSelected: "No file selected.",
}

// Text returns the English message text
func (k MessageKey) Text() string {
	return messageText[k]
}

// MessageFor maps an error from opening a document to the message to show.
// A nil error maps to MessageNone.
func MessageFor(err error) MessageKey {
	if err == nil {
		return MessageNone
	}

	if errors.Is(err, ErrNoFile) {
		return MessageNoFileSelected
	}

	var de *DispatchError
	if errors.As(err, &de) {
		if errors.Is(de.Err, ErrPluginDisabled) {
			return MessagePluginDisabled
		}
		return messageForType(de.SimpleType, de.ContentType)
	}

	if filetype.IsClassificationError(err) {
		return MessageSupportTypes
	}

	return MessageSomethingWrong
}

func messageForType(simpleType, contentType string) MessageKey {
	switch {
	case simpleType == filetype.TypeDOC:
		return MessageFormatInfoDocx
	case simpleType == filetype.TypePPT || simpleType == filetype.TypePPTX:
		return MessageFormatInfoPPTx
	case contentType == filetype.ContentFile2003:
		// unresolved OLE container
		return MessageFormatInfoDocx
	default:
		return MessageSupportTypes
	}
}
