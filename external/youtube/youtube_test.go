package youtube

import (
	"errors"
	"testing"

	"github.com/kkdai/youtube/v2"

	"github.com/foxseedlab/kiosko/internal/media"
)

func TestValidateRef(t *testing.T) {
	s := NewSource(nil)
	for _, ref := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
	} {
		if err := s.ValidateRef(ref); err != nil {
			t.Errorf("ValidateRef(%q) = %v", ref, err)
		}
	}
	for _, ref := range []string{
		"https://example.com/video",
		"ftp://youtube.com/watch?v=dQw4w9WgXcQ",
	} {
		if err := s.ValidateRef(ref); !errors.Is(err, media.ErrInvalidSource) {
			t.Errorf("ValidateRef(%q) = %v", ref, err)
		}
	}
}

func TestPickFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1"`, Height: 1080},
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1, mp4a"`, Height: 360, AudioChannels: 2},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1, mp4a"`, Height: 720, AudioChannels: 2},
		{ItagNo: 139, MimeType: `audio/mp4; codecs="mp4a"`, Bitrate: 48000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a"`, Bitrate: 128000, AudioChannels: 2},
	}

	if f, ok := pickFormat(formats, media.FormatVideo); !ok || f.ItagNo != 22 {
		t.Fatalf("video pick = %d, %v", f.ItagNo, ok)
	}
	if f, ok := pickFormat(formats, media.FormatAudio); !ok || f.ItagNo != 140 {
		t.Fatalf("audio pick = %d, %v", f.ItagNo, ok)
	}
	if f, ok := pickFormat(formats[:3], media.FormatAudio); !ok || f.ItagNo != 22 {
		t.Fatalf("audio fallback = %d, %v", f.ItagNo, ok)
	}
	if _, ok := pickFormat(formats[:1], media.FormatVideo); ok {
		t.Fatal("a silent stream must not be picked")
	}
}
