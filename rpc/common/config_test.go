package common

import (
	"errors"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
	"reflect"
	"testing"
)

func TestParseShards(t *testing.T) {
	shards, err := ParseShards("1=mem, 2=fs(/var/lib/tkv/opfs),3=sqlite(./tkv.db),4=raft")
	if err != nil {
		t.Fatalf("ParseShards failed: %v", err)
	}
	expected := []ServerShard{
		{ShardID: 1, Type: tree.ImplMem},
		{ShardID: 2, Type: tree.ImplFS, Path: "/var/lib/tkv/opfs"},
		{ShardID: 3, Type: tree.ImplSQLite, Path: "./tkv.db"},
		{ShardID: 4, Type: tree.ImplRaft},
	}
	if !reflect.DeepEqual(shards, expected) {
		t.Errorf("Expected %+v, got %+v", expected, shards)
	}
	if shards[1].String() != "2=fs(/var/lib/tkv/opfs)" || shards[0].String() != "1=mem" {
		t.Errorf("Unexpected string form: %s, %s", shards[0], shards[1])
	}

	for _, invalid := range []string{
		"",
		"mem",
		"x=mem",
		"1=mem,1=raft",
		"1=lstore",
		"1=fs",
		"1=mem(/tmp)",
		"1=sqlite(/tmp/db",
	} {
		if _, err := ParseShards(invalid); err == nil {
			t.Errorf("Expected an error for %q", invalid)
		}
	}
}

func TestServerConfig(t *testing.T) {
	c := ServerConfig{
		Shards:         []ServerShard{{ShardID: 1, Type: tree.ImplMem}},
		ReplicaID:      ReplicaID("node-1"),
		ClusterMembers: map[uint64]string{ReplicaID("node-1"): "localhost:63001"},
	}
	if c.HasRaftShard() {
		t.Errorf("Expected no raft shard")
	}
	c.Shards = append(c.Shards, ServerShard{ShardID: 2, Type: tree.ImplRaft})
	if !c.HasRaftShard() {
		t.Errorf("Expected a raft shard")
	}
	if nh := c.ToNodeHostConfig(); nh.RaftAddress != "localhost:63001" {
		t.Errorf("Expected the raft address of the replica, got %q", nh.RaftAddress)
	}
	if rc := c.ToDragonboatConfig(2); rc.ShardID != 2 || rc.ReplicaID != c.ReplicaID {
		t.Errorf("Unexpected dragonboat config %+v", rc)
	}
}

func TestReplicaID(t *testing.T) {
	if ReplicaID("node-1") != ReplicaID("node-1") {
		t.Errorf("Expected a stable replica id")
	}
	if ReplicaID("node-1") == ReplicaID("node-2") {
		t.Errorf("Expected different replica ids for different names")
	}
	if ReplicaID("") == 0 {
		t.Errorf("Expected a non zero replica id")
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, expected := range map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"INFO":  logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	} {
		lvl, err := ParseLogLevel(in)
		if err != nil || lvl != expected {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), expected %v", in, lvl, err, expected)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}

func TestResponseErrors(t *testing.T) {
	resp := NewGetItemResponse(nil, store.WrapError(store.RetCNotFound, "key app/k does not exist", tree.ErrNotFound))
	if resp.Code != store.RetCNotFound {
		t.Errorf("Expected code NotFound, got %s", resp.Code)
	}
	if resp.Err != "key app/k does not exist: "+tree.ErrNotFound.Error() {
		t.Errorf("Unexpected error message %q", resp.Err)
	}

	resp = NewClearResponse(errors.New("disk on fire"))
	if resp.Code != store.RetCInternalError || resp.Err != "disk on fire" {
		t.Errorf("Unexpected error fields (%s, %q)", resp.Code, resp.Err)
	}

	resp = NewPingResponse(nil)
	if !resp.Ok || resp.Code != store.RetCSuccess || resp.Err != "" {
		t.Errorf("Unexpected ping response %+v", resp)
	}
}

func TestMessageTypeJSON(t *testing.T) {
	for msgType := MsgTSuccess; msgType <= MsgTCustom; msgType++ {
		data, err := msgType.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%s) failed: %v", msgType, err)
		}
		var decoded MessageType
		if err := decoded.UnmarshalJSON(data); err != nil || decoded != msgType {
			t.Errorf("Round trip of %s returned (%s, %v)", msgType, decoded, err)
		}
	}
	var m MessageType
	if err := m.UnmarshalJSON([]byte(`"setE"`)); err == nil {
		t.Errorf("Expected an error for an unknown message type")
	}
}
