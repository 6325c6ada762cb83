// Package protocol implements the minechat wire format: newline-delimited
// UTF-8 lines, JSON server replies and blank-line terminated message frames.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used in server replies.
const (
	FieldAccountHash = "account_hash"
	FieldNickname    = "nickname"
)

var (
	// ErrMalformedReply indicates a reply that is not valid JSON.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrUnexpectedReply indicates valid JSON of the wrong shape.
	ErrUnexpectedReply = errors.New("unexpected reply")

	// ErrMissingAccountHash indicates a registration reply without a token.
	ErrMissingAccountHash = errors.New("reply has no account_hash")
)

// Account is the identity the server hands out on registration.
type Account struct {
	Nickname string
	Hash     string
}

// EncodeMessage converts a user message into the lines written on the wire.
// Every line of the message is followed by a blank line, which the server
// uses as the frame terminator.
func EncodeMessage(message string) []string {
	lines := splitLines(message)
	frames := make([]string, 0, len(lines)*2)
	for _, line := range lines {
		frames = append(frames, line, "")
	}
	return frames
}

// SanitizeLine makes sure a single value never spans two protocol lines.
func SanitizeLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// DecodeRegistration parses the server's answer to a registration request.
func DecodeRegistration(line string) (Account, error) {
	v, err := decodeValue(line)
	if err != nil {
		return Account{}, err
	}

	obj := v.GetStructValue()
	if obj == nil {
		return Account{}, fmt.Errorf("%w: want object, got %s", ErrUnexpectedReply, kindName(v))
	}

	account := accountFromStruct(obj)
	if account.Hash == "" {
		return Account{}, ErrMissingAccountHash
	}
	return account, nil
}

// DecodeAuth parses the server's answer to a token. A blank line or JSON null
// means the token was rejected and yields (nil, nil). A JSON object is the
// account info of the authenticated user.
func DecodeAuth(line string) (*structpb.Struct, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	v, err := decodeValue(line)
	if err != nil {
		return nil, err
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StructValue:
		return kind.StructValue, nil
	default:
		return nil, fmt.Errorf("%w: want object or null, got %s", ErrUnexpectedReply, kindName(v))
	}
}

// AccountFromInfo extracts the well-known fields of an auth reply.
func AccountFromInfo(info *structpb.Struct) Account {
	if info == nil {
		return Account{}
	}
	return accountFromStruct(info)
}

// EncodeAccount renders the reply a server sends for a known account.
func EncodeAccount(account Account) (string, error) {
	obj, err := structpb.NewStruct(map[string]any{
		FieldNickname:    account.Nickname,
		FieldAccountHash: account.Hash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode account: %w", err)
	}
	return marshal(obj)
}

// EncodeNull renders the reply a server sends for an unknown token.
func EncodeNull() string {
	// NullValue always marshals.
	s, _ := marshal(structpb.NewNullValue())
	return s
}

func decodeValue(line string) (*structpb.Value, error) {
	v := &structpb.Value{}
	if err := protojson.Unmarshal([]byte(strings.TrimSpace(line)), v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return v, nil
}

func marshal(m proto.Message) (string, error) {
	data, err := protojson.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func accountFromStruct(obj *structpb.Struct) Account {
	fields := obj.GetFields()
	return Account{
		Nickname: fields[FieldNickname].GetStringValue(),
		Hash:     fields[FieldAccountHash].GetStringValue(),
	}
}

// splitLines splits on \n, \r\n and \r. A trailing terminator does not start
// a new line, and an empty message has no lines at all.
func splitLines(message string) []string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	message = strings.ReplaceAll(message, "\r", "\n")
	if message == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(message, "\n"), "\n")
}

func kindName(v *structpb.Value) string {
	switch v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "null"
	case *structpb.Value_NumberValue:
		return "number"
	case *structpb.Value_StringValue:
		return "string"
	case *structpb.Value_BoolValue:
		return "bool"
	case *structpb.Value_StructValue:
		return "object"
	case *structpb.Value_ListValue:
		return "list"
	default:
		return "unknown"
	}
}
