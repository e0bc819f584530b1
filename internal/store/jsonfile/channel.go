package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/relay"
)

const (
	messageSuffix   = ".json"
	tmpSuffix       = ".tmp"
	eventBufferSize = 100
)

// ChannelDialer opens relay transports backed by a directory per channel.
// Each message is one JSON file named "<unix-nanos>_<sender>_<seq>.json";
// peers learn about new files through fsnotify.
type ChannelDialer struct {
	// Dir is the root directory; channel "x" lives in Dir/x.
	Dir string
	// Sender identifies this process. Empty means a random UUID per dial.
	Sender string
	Logger zerolog.Logger
}

var _ relay.Dialer = ChannelDialer{}

// Dial creates the channel directory and starts watching it. Only files
// created after Dial returns are delivered.
func (d ChannelDialer) Dial(_ context.Context, channel string) (relay.Transport, error) {
	if d.Dir == "" {
		return nil, errors.New("channel dialer: empty directory")
	}
	if strings.ContainsAny(channel, `/\`) || channel == "" || channel == "." || channel == ".." {
		return nil, fmt.Errorf("channel dialer: invalid channel name %q", channel)
	}

	sender := d.Sender
	if sender == "" {
		sender = uuid.NewString()
	}
	if strings.Contains(sender, "_") {
		return nil, fmt.Errorf("channel dialer: sender %q must not contain '_'", sender)
	}

	dir := filepath.Join(d.Dir, channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ft := &fileTransport{
		dir:     dir,
		sender:  sender,
		log:     d.Logger.With().Str("channel_dir", dir).Logger(),
		watcher: watcher,
		out:     make(chan post.Envelope, eventBufferSize),
		seen:    make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	ft.wg.Add(1)
	go ft.run()

	return ft, nil
}

// Sweep removes message files in every channel directory that are older
// than retention and returns how many were removed.
func (d ChannelDialer) Sweep(_ context.Context, retention time.Duration) (int, error) {
	channels, err := os.ReadDir(d.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-retention).UnixNano()
	removed := 0

	var errs []error
	for _, ch := range channels {
		if !ch.IsDir() {
			continue
		}

		dir := filepath.Join(d.Dir, ch.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, messageSuffix) {
				continue
			}

			msg, ok := parseMessageName(name)
			if !ok || msg.nanos >= cutoff {
				continue
			}

			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	return removed, errors.Join(errs...)
}

type messageName struct {
	nanos  int64
	sender string
	seq    uint64
}

func parseMessageName(name string) (messageName, bool) {
	if !strings.HasSuffix(name, messageSuffix) {
		return messageName{}, false
	}

	parts := strings.Split(strings.TrimSuffix(name, messageSuffix), "_")
	if len(parts) != 3 || parts[1] == "" {
		return messageName{}, false
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return messageName{}, false
	}

	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return messageName{}, false
	}

	return messageName{nanos: nanos, sender: parts[1], seq: seq}, true
}

type fileTransport struct {
	dir     string
	sender  string
	log     zerolog.Logger
	watcher *fsnotify.Watcher
	seq     atomic.Uint64

	out  chan post.Envelope
	seen map[string]struct{}

	closed atomic.Bool
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Send writes env as a new message file via write-then-rename so watchers
// never observe a partial file.
func (ft *fileTransport) Send(_ context.Context, env post.Envelope) error {
	if ft.closed.Load() {
		return relay.ErrClosed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	name := fmt.Sprintf("%020d_%s_%06d%s", time.Now().UnixNano(), ft.sender, ft.seq.Add(1), messageSuffix)
	path := filepath.Join(ft.dir, name)
	tmp := path + tmpSuffix

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (ft *fileTransport) Messages() <-chan post.Envelope { return ft.out }

func (ft *fileTransport) Close() error {
	var err error
	ft.once.Do(func() {
		ft.closed.Store(true)
		ft.cancel()
		err = ft.watcher.Close()
		ft.wg.Wait()
		close(ft.out)
	})
	return err
}

// run processes filesystem events from fsnotify.
func (ft *fileTransport) run() {
	defer ft.wg.Done()

	for {
		select {
		case <-ft.ctx.Done():
			return
		case event, ok := <-ft.watcher.Events:
			if !ok {
				return
			}
			ft.handleEvent(event)
		case err, ok := <-ft.watcher.Errors:
			if !ok {
				return
			}
			ft.log.Warn().Err(err).Msg("channel watcher error")
		}
	}
}

func (ft *fileTransport) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	if event.Has(fsnotify.Remove) {
		delete(ft.seen, name)
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// Ignore temp files and anything that is not a message
	msg, ok := parseMessageName(name)
	if !ok || msg.sender == ft.sender {
		return
	}

	if _, dup := ft.seen[name]; dup {
		return
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ft.log.Warn().Err(err).Str("file", name).Msg("failed to read channel message")
		}
		return
	}

	var env post.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ft.log.Warn().Err(err).Str("file", name).Msg("dropping malformed channel message")
		ft.seen[name] = struct{}{}
		return
	}

	ft.seen[name] = struct{}{}

	select {
	case ft.out <- env:
	case <-ft.ctx.Done():
	}
}
