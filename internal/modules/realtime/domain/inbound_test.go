package domain

import "testing"

func TestDecodeInbound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{name: "message", frame: `{"type":"message","content":"hi","room_id":42}`, want: SendMessage{Content: "hi", RoomID: 42}},
		{name: "message without room", frame: `{"type":"message","content":"hi"}`, want: SendMessage{Content: "hi"}},
		{name: "missing type defaults to message", frame: `{"content":"hey"}`, want: SendMessage{Content: "hey"}},
		{name: "join", frame: `{"type":"join_room","room_id":5}`, want: JoinRoom{RoomID: 5}},
		{name: "join without room", frame: `{"type":"join_room"}`, want: JoinRoom{}},
		{name: "leave", frame: `{"type":"leave_room","room_id":7}`, want: LeaveRoom{RoomID: 7}},
		{name: "typing", frame: `{"type":"typing","room_id":1}`, want: Typing{RoomID: 1}},
		{name: "ping", frame: `{"type":"ping"}`, want: Ping{}},
		{name: "type is normalized", frame: `{"type":" PING "}`, want: Ping{}},
		{name: "unknown", frame: `{"type":"dance"}`, want: Unknown{Type: "dance"}},
		{name: "invalid json", frame: `{"type":`, want: Malformed{Reason: ReasonInvalidJSON}},
		{name: "not an object", frame: `"hello"`, want: Malformed{Reason: ReasonInvalidJSON}},
		{name: "room id wrong type", frame: `{"type":"join_room","room_id":"abc"}`, want: Malformed{Reason: ReasonInvalidRoomID}},
		{name: "negative room id", frame: `{"type":"join_room","room_id":-3}`, want: Malformed{Reason: ReasonInvalidRoomID}},
		{name: "content wrong type", frame: `{"type":"message","content":12,"room_id":1}`, want: Malformed{Reason: ReasonInvalidField}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := DecodeInbound([]byte(tc.frame))
			if got != tc.want {
				t.Fatalf("DecodeInbound(%s) expected %#v got %#v", tc.frame, tc.want, got)
			}
		})
	}
}
