package cmd

import "testing"

func TestDetectAudioMimeType(t *testing.T) {
	tests := map[string]string{
		"q.wav":       "audio/wav",
		"memo.M4A":    "audio/mp4",
		"a/b/c.flac":  "audio/flac",
		"note.ogg":    "audio/ogg",
		"speech.webm": "audio/webm",
	}
	for name, want := range tests {
		got, err := detectAudioMimeType(name)
		if err != nil || got != want {
			t.Errorf("detectAudioMimeType(%q)=%q, %v; want %q", name, got, err, want)
		}
	}
	if _, err := detectAudioMimeType("notes.txt"); err == nil {
		t.Error("text file accepted as audio")
	}
}
