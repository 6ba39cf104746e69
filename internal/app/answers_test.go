package app

import (
	"errors"
	"testing"

	"exam-quiz-service/internal/domain"
)

func TestAnswerCodecsPreserveSheets(t *testing.T) {
	sheet := domain.AnswerSheet{1: "Paris", 42: "4"}
	for _, codec := range []AnswerCodec{JSONAnswerCodec{}, MsgpackAnswerCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			blob, err := codec.Encode(sheet)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := codec.Decode(blob)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 2 || got[1] != "Paris" || got[42] != "4" {
				t.Fatalf("unexpected sheet %v", got)
			}

			empty, err := codec.Decode(nil)
			if err != nil || empty == nil || len(empty) != 0 {
				t.Fatalf("expected empty sheet for empty blob, got %v %v", empty, err)
			}
			if _, err := codec.Decode([]byte{0xc1}); err == nil {
				t.Fatalf("expected error for corrupt blob")
			}
		})
	}
}

func TestAnswerCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": AnswerFormatJSON, "JSON": AnswerFormatJSON, " msgpack ": AnswerFormatMsgpack} {
		codec, err := AnswerCodecByName(name)
		if err != nil || codec.Name() != want {
			t.Fatalf("%q: expected %s, got %v %v", name, want, codec, err)
		}
	}
	if _, err := AnswerCodecByName("xml"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown format, got %v", err)
	}
}
