package notify

import (
	"errors"
	"strings"
	"testing"
)

func TestNotifyRespectsEnabled(t *testing.T) {
	var got []string
	fake := func(title, message string) error {
		got = append(got, title+": "+message)
		return nil
	}

	off := New(false, "")
	off.notify = fake
	off.Notify("hello")
	if len(got) != 0 {
		t.Fatalf("disabled notifier sent %v", got)
	}

	on := New(true, "")
	on.notify = fake
	on.Notify("hello")
	on.Error("transcribe", errors.New("boom"))
	if len(got) != 2 || got[0] != "multibot: hello" || !strings.Contains(got[1], "transcribe: boom") {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestCueWithoutSoundIsNoop(t *testing.T) {
	n := New(true, "")
	n.Cue()
	if n.speakerInit {
		t.Fatalf("speaker initialised without a sound file")
	}
}
