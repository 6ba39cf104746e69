package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"exam-quiz-service/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	AnswerFormatJSON    = "json"
	AnswerFormatMsgpack = "msgpack"
)

// AnswerCodec turns an answer sheet into the opaque blob kept on a submission row.
type AnswerCodec interface {
	Name() string
	Encode(sheet domain.AnswerSheet) ([]byte, error)
	Decode(data []byte) (domain.AnswerSheet, error)
}

// AnswerCodecByName returns the codec for a stored format name. Empty means JSON,
// which is what rows written before the format column existed hold.
func AnswerCodecByName(name string) (AnswerCodec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AnswerFormatJSON:
		return JSONAnswerCodec{}, nil
	case AnswerFormatMsgpack:
		return MsgpackAnswerCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown answer format %q", domain.ErrInvalidInput, name)
	}
}

type JSONAnswerCodec struct{}

func (JSONAnswerCodec) Name() string { return AnswerFormatJSON }

func (JSONAnswerCodec) Encode(sheet domain.AnswerSheet) ([]byte, error) {
	if sheet == nil {
		sheet = domain.AnswerSheet{}
	}
	return json.Marshal(sheet)
}

func (JSONAnswerCodec) Decode(data []byte) (domain.AnswerSheet, error) {
	sheet := domain.AnswerSheet{}
	if len(data) == 0 {
		return sheet, nil
	}
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("decode json answers: %w", err)
	}
	return sheet, nil
}

type MsgpackAnswerCodec struct{}

func (MsgpackAnswerCodec) Name() string { return AnswerFormatMsgpack }

func (MsgpackAnswerCodec) Encode(sheet domain.AnswerSheet) ([]byte, error) {
	if sheet == nil {
		sheet = domain.AnswerSheet{}
	}
	return msgpack.Marshal(map[int64]string(sheet))
}

func (MsgpackAnswerCodec) Decode(data []byte) (domain.AnswerSheet, error) {
	sheet := domain.AnswerSheet{}
	if len(data) == 0 {
		return sheet, nil
	}
	var raw map[int64]string
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode msgpack answers: %w", err)
	}
	for k, v := range raw {
		sheet[k] = v
	}
	return sheet, nil
}
