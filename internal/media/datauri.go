package media

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"intervisage/internal/errors"
	"intervisage/internal/types"
)

// DataURI is a parsed "data:<mime>;base64,<payload>" string. Clips and resumes
// cross the API boundary in this format, so validation happens here before any
// flow is invoked.
type DataURI struct {
	MIMEType string
	Payload  string // base64-encoded content, not decoded eagerly
}

// ParseDataURI validates the overall shape of a data URI without decoding the
// payload (answer clips can be large; the flows consume them base64 as-is).
func ParseDataURI(raw string) (DataURI, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI must start with 'data:'", nil)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI is missing the ',' separator", nil)
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI must be base64-encoded", nil)
	}
	if mimeType == "" {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI is missing a MIME type", nil)
	}
	if payload == "" {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI has an empty payload", nil)
	}

	// Spot-check the encoding without buffering the decoded content.
	if _, err := base64.StdEncoding.DecodeString(firstChunk(payload)); err != nil {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Data URI payload is not valid base64", err)
	}

	return DataURI{MIMEType: mimeType, Payload: payload}, nil
}

// firstChunk returns a prefix of the payload whose length is a multiple of 4
// so it decodes standalone.
func firstChunk(payload string) string {
	const limit = 512
	if len(payload) <= limit {
		return payload
	}
	return payload[:limit-limit%4]
}

// Decode returns the decoded payload bytes.
func (d DataURI) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(d.Payload)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDataURI,
			"Failed to decode data URI payload", err)
	}
	return data, nil
}

// String reassembles the canonical data URI form.
func (d DataURI) String() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MIMEType, d.Payload)
}

// resumeMIMETypes are the only upload types accepted for parsing. Matching is
// by MIME type only; there is no content sniffing beyond this gate.
var resumeMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ValidateResumeURI parses a resume upload and enforces the accepted-type gate.
func ValidateResumeURI(raw string) (DataURI, error) {
	uri, err := ParseDataURI(raw)
	if err != nil {
		return DataURI{}, err
	}
	if !resumeMIMETypes[uri.MIMEType] {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidMediaType,
			fmt.Sprintf("Unsupported resume type %q, expected PDF or DOCX", uri.MIMEType), nil)
	}
	return uri, nil
}

// ValidateAnswerURI parses a recorded answer clip and requires an audio or
// video container type.
func ValidateAnswerURI(raw string) (DataURI, error) {
	uri, err := ParseDataURI(raw)
	if err != nil {
		return DataURI{}, err
	}
	if !strings.HasPrefix(uri.MIMEType, "audio/") && !strings.HasPrefix(uri.MIMEType, "video/") {
		return DataURI{}, errors.NewValidationError(errors.ErrCodeInvalidMediaType,
			fmt.Sprintf("Unsupported answer media type %q, expected audio/* or video/*", uri.MIMEType), nil)
	}
	return uri, nil
}

// FileToDataURI reads a file and encodes it as a data URI, inferring the MIME
// type from the extension. Used by the CLI to feed local resumes to the flows.
func FileToDataURI(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", path), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		// The built-in table has no entry for Office extensions.
		switch ext {
		case ".docx":
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		default:
			mimeType = "application/octet-stream"
		}
	}
	// Strip optional parameters like "; charset=utf-8".
	if base, _, found := strings.Cut(mimeType, ";"); found {
		mimeType = strings.TrimSpace(base)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(content)), nil
}

// EncodeFacialLog serializes the facial snapshot log for flow transport. Nil
// entries are preserved as JSON nulls (no face detected at that frame).
func EncodeFacialLog(snapshots []*types.FacialSnapshot) (string, error) {
	if snapshots == nil {
		snapshots = []*types.FacialSnapshot{}
	}
	data, err := json.Marshal(snapshots)
	if err != nil {
		return "", errors.NewInternalError("FACIAL_LOG_ENCODE_FAILED",
			"Failed to serialize facial snapshot log", err)
	}
	return string(data), nil
}
