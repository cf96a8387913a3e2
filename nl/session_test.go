//go:build linux

package nl

import (
	"errors"
	"io"
	"testing"

	"github.com/mdlayher/netlink/nlenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeSocket replays a fixed sequence of datagrams and records what was sent.
type fakeSocket struct {
	sent      [][]byte
	datagrams [][]byte
	closed    bool
}

func (s *fakeSocket) Send(b []byte) error {
	s.sent = append(s.sent, append([]byte(nil), b...))
	return nil
}

func (s *fakeSocket) Receive(b []byte) (int, error) {
	if len(s.datagrams) == 0 {
		return 0, io.EOF
	}
	d := s.datagrams[0]
	s.datagrams = s.datagrams[1:]
	return copy(b, d), nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func frame(typ, flags uint16, seq uint32, data []byte) []byte {
	return Message{Type: typ, Flags: flags, Seq: seq, Data: data}.marshal()
}

func errorFrame(seq uint32, code int32) []byte {
	data := make([]byte, 4)
	nlenc.PutInt32(data, code)
	return frame(unix.NLMSG_ERROR, 0, seq, data)
}

func concat(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func TestSequenceStartsAtOne(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{errorFrame(1, 0)}}
	c := newConn(sock)

	_, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	require.NoError(t, err)

	require.Len(t, sock.sent, 1)
	sent, _, err := extractFrame(sock.sent[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), sent.Seq)
	assert.Equal(t, uint16(unix.NLM_F_REQUEST|unix.NLM_F_ACK), sent.Flags&(unix.NLM_F_REQUEST|unix.NLM_F_ACK))
}

func TestMultipartReassembly(t *testing.T) {
	payload := func(i byte) []byte { return []byte{i, 0, 0, 0} }
	sock := &fakeSocket{datagrams: [][]byte{
		concat(
			frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 1, payload(1)),
			frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 1, payload(2)),
		),
		concat(
			frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 1, payload(3)),
			frame(unix.NLMSG_DONE, unix.NLM_F_MULTI, 1, payload(0)),
		),
	}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_GETLINK, Flags: unix.NLM_F_DUMP})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, byte(i+1), m.Data[0], "results must keep arrival order")
	}
}

func TestSingleReplyTerminatesWithoutDone(t *testing.T) {
	// Only one non-multipart frame is queued; waiting for a Done marker
	// would hit the fake's io.EOF.
	sock := &fakeSocket{datagrams: [][]byte{
		frame(unix.RTM_NEWLINK, 0, 1, []byte{1, 2, 3, 4}),
	}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestStaleSequenceDiscarded(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{concat(
		frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 0, []byte{9, 9, 9, 9}), // stale
		frame(unix.RTM_NEWLINK, 0, 1, []byte{1, 0, 0, 0}),
	)}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(1), msgs[0].Data[0])
}

func TestSequenceMismatchIsFatal(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{
		frame(unix.RTM_NEWLINK, 0, 7, []byte{0, 0, 0, 0}),
	}}
	c := newConn(sock)

	_, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	var mismatch *SequenceMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint32(7), mismatch.Got)
	assert.Equal(t, uint32(1), mismatch.Want)
}

func TestErrnoOutcomes(t *testing.T) {
	tests := []struct {
		name string
		code int32
		want error
	}{
		{"no such device", -int32(unix.ENODEV), ErrNotFound},
		{"no such entry", -int32(unix.ENOENT), ErrNotFound},
		{"already exists", -int32(unix.EEXIST), ErrExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sock := &fakeSocket{datagrams: [][]byte{errorFrame(1, tt.code)}}
			c := newConn(sock)
			_, err := c.Execute(Message{Type: unix.RTM_NEWLINK})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmptyErrorIsAck(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{errorFrame(1, 0)}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_NEWLINK})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestUnknownErrnoIsProtocolError(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{errorFrame(1, -int32(unix.EPERM))}}
	c := newConn(sock)

	_, err := c.Execute(Message{Type: unix.RTM_NEWLINK})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, unix.EPERM, perr.Errno)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrExists)
}

func TestOverrunIsUnimplemented(t *testing.T) {
	sock := &fakeSocket{datagrams: [][]byte{
		frame(unix.NLMSG_OVERRUN, 0, 1, []byte{0, 0, 0, 0}),
	}}
	c := newConn(sock)

	_, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	assert.ErrorIs(t, err, ErrUnimplemented)
}

func TestMalformedBufferReturnsPartialResults(t *testing.T) {
	good := frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 1, []byte{1, 0, 0, 0})
	// A frame whose declared length is below the header size cannot be
	// skipped over; the rest of the buffer must be dropped.
	bad := make([]byte, 16)
	nlenc.PutUint32(bad[0:4], 7)

	sock := &fakeSocket{datagrams: [][]byte{concat(good, bad)}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_GETLINK, Flags: unix.NLM_F_DUMP})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(1), msgs[0].Data[0])
}

func TestTruncatedTailReturnsPartialResults(t *testing.T) {
	good := frame(unix.RTM_NEWLINK, unix.NLM_F_MULTI, 1, []byte{1, 0, 0, 0})
	sock := &fakeSocket{datagrams: [][]byte{concat(good, []byte{0x02, 0x00, 0x00})}}
	c := newConn(sock)

	msgs, err := c.Execute(Message{Type: unix.RTM_GETLINK, Flags: unix.NLM_F_DUMP})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestReceiveErrorSurfaces(t *testing.T) {
	sock := &fakeSocket{} // empty: first Receive returns io.EOF
	c := newConn(sock)

	_, err := c.Execute(Message{Type: unix.RTM_GETLINK})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCloseReleasesSocket(t *testing.T) {
	sock := &fakeSocket{}
	c := newConn(sock)
	require.NoError(t, c.Close())
	assert.True(t, sock.closed)
}
