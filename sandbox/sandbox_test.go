package sandbox

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recorder implements Actions and remembers what tenant code did.
type recorder struct {
	sync.Mutex
	replies []string
	sends   [][2]string
}

func (r *recorder) Reply(ctx context.Context, text string) error {
	r.Lock()
	r.replies = append(r.replies, text)
	r.Unlock()
	return nil
}

func (r *recorder) Send(ctx context.Context, channel, text string) error {
	r.Lock()
	r.sends = append(r.sends, [2]string{channel, text})
	r.Unlock()
	return nil
}

func TestExecSharedState(t *testing.T) {
	i := NewInterpreter()
	r := &recorder{}

	// Units share one runtime: the first unit's variables are
	// visible to the second.
	err := i.Exec(context.Background(), []string{
		"var x = 1",
		"reply(x + 1)",
	}, nil, r)
	if err != nil {
		t.Fatal(err)
	}

	if len(r.replies) != 1 || r.replies[0] != "2" {
		t.Fatalf("replies: %#v", r.replies)
	}
}

func TestExecParamsBound(t *testing.T) {
	i := NewInterpreter()
	r := &recorder{}

	params := map[string]interface{}{
		"message": map[string]interface{}{
			"content": "hello",
			"channel": map[string]interface{}{"id": "c9"},
		},
	}

	err := i.Exec(context.Background(), []string{
		"send(message.channel.id, message.content)",
	}, params, r)
	if err != nil {
		t.Fatal(err)
	}

	if len(r.sends) != 1 || r.sends[0] != [2]string{"c9", "hello"} {
		t.Fatalf("sends: %#v", r.sends)
	}
}

func TestExecFault(t *testing.T) {
	i := NewInterpreter()

	if err := i.Exec(context.Background(), []string{"throw 'boom'"}, nil, nil); err == nil {
		t.Fatal("expected the fault to surface as an error")
	}
}

func TestExecSkipsEmptyUnits(t *testing.T) {
	i := NewInterpreter()
	r := &recorder{}

	if err := i.Exec(context.Background(), []string{"", "reply('hi')", ""}, nil, r); err != nil {
		t.Fatal(err)
	}
	if len(r.replies) != 1 {
		t.Fatalf("replies: %#v", r.replies)
	}
}

func TestExecInterrupt(t *testing.T) {
	i := NewInterpreter()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := i.Exec(ctx, []string{"while (true) {}"}, nil, nil)
	if err != Interrupted {
		t.Fatalf("got %v", err)
	}
	if elapsed := time.Since(start); 5*time.Second < elapsed {
		t.Fatalf("interrupt took %s", elapsed)
	}
}

func TestExecUtilities(t *testing.T) {
	i := NewInterpreter()
	r := &recorder{}

	err := i.Exec(context.Background(), []string{
		`if (esc('a b') != 'a+b') { throw 'esc' }`,
		`if (gensym() == gensym()) { throw 'gensym' }`,
		`if (cronNext('0 0 * * *').length == 0) { throw 'cronNext' }`,
		`reply('ok')`,
	}, nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.replies) != 1 {
		t.Fatalf("replies: %#v", r.replies)
	}
}
