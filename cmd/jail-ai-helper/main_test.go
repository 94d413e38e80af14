package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/jail-ai/jailctl/pkg/egress/protocol"
)

func TestRunRejectsMalformedJSON(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(strings.NewReader("not json"), &out, &errOut)
	if code == 0 {
		t.Fatal("expected non-zero exit for malformed request")
	}
	var resp protocol.Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON response, got %q: %v", out.String(), err)
	}
	if resp.OK {
		t.Fatal("expected OK=false")
	}
	if !strings.Contains(errOut.String(), "jail-ai-helper:") {
		t.Fatalf("expected marker on stderr, got %q", errOut.String())
	}
}

func TestRunRejectsMissingAddressList(t *testing.T) {
	req := protocol.Request{CgroupPath: "/sys/fs/cgroup"}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := run(bytes.NewReader(body), &out, &errOut)
	if code == 0 {
		t.Fatal("expected non-zero exit for request missing ipv4 addresses")
	}
}

func TestRunRejectsCgroupPathOutsideRoot(t *testing.T) {
	req := protocol.Request{CgroupPath: "/tmp/not-a-cgroup", IPv4: []string{"10.0.0.1"}}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := run(bytes.NewReader(body), &out, &errOut)
	if code == 0 {
		t.Fatal("expected non-zero exit for cgroup path outside the cgroup root")
	}
	var resp protocol.Response
	_ = json.Unmarshal(out.Bytes(), &resp)
	if resp.Category != protocol.CategoryCgroupPathRejected {
		t.Fatalf("expected cgroup-path category, got %s", resp.Category)
	}
}

func TestRunFailsClosedOnUnloadableProgram(t *testing.T) {
	if _, err := os.Stat("/sys/fs/cgroup"); err != nil {
		t.Skip("no /sys/fs/cgroup on this host")
	}
	req := protocol.Request{
		CgroupPath:   "/sys/fs/cgroup",
		IPv4:         []string{"10.0.0.1"},
		ProgramBytes: []byte("not a valid ELF object"),
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := run(bytes.NewReader(body), &out, &errOut)
	if code == 0 {
		t.Fatal("expected non-zero exit for an unloadable program")
	}
	var resp protocol.Response
	_ = json.Unmarshal(out.Bytes(), &resp)
	if resp.Category != protocol.CategoryKernelFeatureUnavailable {
		t.Fatalf("expected kernel-feature category, got %s", resp.Category)
	}
}
