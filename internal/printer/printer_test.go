package printer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/postsync/internal/core/notify"
)

func TestPrinter_Streams(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.Printf("plain %d", 1)
	p.Success("Post created", "abc123")
	p.Infof("nothing to do")
	p.Warnf("careful")
	p.Errorf("broken %s", "thing")

	assert.Contains(t, out.String(), "plain 1")
	assert.Contains(t, out.String(), "Post created")
	assert.Contains(t, out.String(), "abc123")
	assert.Contains(t, out.String(), "nothing to do")
	assert.NotContains(t, out.String(), "careful")

	assert.Contains(t, errOut.String(), "careful")
	assert.Contains(t, errOut.String(), "broken thing")
}

func TestPrinter_NotifyRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.Notify(notify.Notification{Level: notify.LevelInfo, Title: "Sync", Message: "Post updated in another tab."})
	p.Notify(notify.Notification{Level: notify.LevelError, Title: "Save failed", Message: "Could not save the post."})

	assert.Contains(t, out.String(), "Sync")
	assert.Contains(t, out.String(), "Post updated in another tab.")
	assert.Contains(t, errOut.String(), "Save failed")
	assert.NotContains(t, out.String(), "Save failed")
}

func TestFormatNotification_NoMessage(t *testing.T) {
	s := FormatNotification(notify.Notification{Level: notify.LevelSuccess, Title: "Done"})
	assert.Contains(t, s, "Done")
	assert.Contains(t, s, iconSuccess)
}

func TestCtx(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out)

	ctx := NewContext(context.Background(), p)
	assert.Same(t, p, Ctx(ctx))
	assert.NotNil(t, Ctx(context.Background()))
}
