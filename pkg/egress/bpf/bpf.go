// Package bpf loads the compiled cgroup/connect4 and cgroup/connect6
// kernel programs the privileged helper attaches to a jail's cgroup, and
// populates their blocked-address maps (§4.E step 5).
package bpf

import (
	"bytes"
	"embed"
	"fmt"
	"net"
	"os"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

//go:embed filter.o
var embedded embed.FS

// Default reads the filter.o embedded in the binary at build time,
// mirroring the recipe table's embedding convention. This is the program
// the helper loads when the request carries neither ProgramBytes nor
// ProgramPath. The filter.o in this tree is a text placeholder, not a
// compiled ELF object, so loading it fails until a compiled object
// replaces it.
func Default() ([]byte, error) {
	return embedded.ReadFile("filter.o")
}

// Map names the kernel program is expected to declare. The loader fails
// closed (returns an error, never a half-populated collection) if either
// is missing.
const (
	MapBlockedV4 = "blocked_v4"
	MapBlockedV6 = "blocked_v6"
)

// Collection bundles the loaded programs and maps for one attach
// operation, so the caller can detach everything together on teardown.
type Collection struct {
	spec     *ebpf.CollectionSpec
	coll     *ebpf.Collection
	connect4 link.Link
	connect6 link.Link
}

// Load reads the collection spec from an in-memory object (preferred,
// §4.E step 5 "ProgramBytes") or falls back to a file on disk
// ("ProgramPath") when bytes weren't supplied.
func Load(programBytes []byte, programPath string) (*ebpf.CollectionSpec, error) {
	if len(programBytes) == 0 && programPath == "" {
		data, err := Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded default program: %w", err)
		}
		programBytes = data
	}
	if len(programBytes) > 0 {
		spec, err := ebpf.LoadCollectionSpecFromReader(bytes.NewReader(programBytes))
		if err != nil {
			return nil, fmt.Errorf("load program bytes: %w", err)
		}
		return spec, nil
	}
	f, err := os.Open(programPath)
	if err != nil {
		return nil, fmt.Errorf("open program %s: %w", programPath, err)
	}
	defer f.Close()
	spec, err := ebpf.LoadCollectionSpecFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", programPath, err)
	}
	return spec, nil
}

// NewCollection instantiates the programs and maps described by spec in
// the kernel.
func NewCollection(spec *ebpf.CollectionSpec) (*Collection, error) {
	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("instantiate collection: %w", err)
	}
	if coll.Maps[MapBlockedV4] == nil || coll.Maps[MapBlockedV6] == nil {
		coll.Close()
		return nil, fmt.Errorf("program missing required maps %q/%q", MapBlockedV4, MapBlockedV6)
	}
	return &Collection{spec: spec, coll: coll}, nil
}

// PopulateV4 inserts each address's 4-byte network-order representation
// into the blocked_v4 hash map, keyed on address with a sentinel value.
func (c *Collection) PopulateV4(addrs []string) error {
	return populate(c.coll.Maps[MapBlockedV4], addrs, net.IP.To4)
}

// PopulateV6 mirrors PopulateV4 for the 16-byte blocked_v6 map.
func (c *Collection) PopulateV6(addrs []string) error {
	return populate(c.coll.Maps[MapBlockedV6], addrs, net.IP.To16)
}

func populate(m *ebpf.Map, addrs []string, toBytes func(net.IP) net.IP) error {
	var one uint8 = 1
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			return fmt.Errorf("invalid address %q", a)
		}
		key := toBytes(ip)
		if key == nil {
			continue
		}
		if err := m.Put([]byte(key), one); err != nil {
			return fmt.Errorf("populate %q: %w", a, err)
		}
	}
	return nil
}

// AttachConnect4 and AttachConnect6 attach the collection's
// cgroup/connect4 and cgroup/connect6 programs to the cgroup at path.
func (c *Collection) AttachConnect4(cgroupPath string) error {
	l, err := link.AttachCgroup(link.CgroupOptions{
		Path:    cgroupPath,
		Attach:  ebpf.AttachCGroupInet4Connect,
		Program: c.coll.Programs["connect4"],
	})
	if err != nil {
		return fmt.Errorf("attach connect4: %w", err)
	}
	c.connect4 = l
	return nil
}

func (c *Collection) AttachConnect6(cgroupPath string) error {
	l, err := link.AttachCgroup(link.CgroupOptions{
		Path:    cgroupPath,
		Attach:  ebpf.AttachCGroupInet6Connect,
		Program: c.coll.Programs["connect6"],
	})
	if err != nil {
		return fmt.Errorf("attach connect6: %w", err)
	}
	c.connect6 = l
	return nil
}

// Close detaches both programs and releases the collection's kernel
// resources. The helper process exits immediately after a successful
// attach (§4.E step 6), so in the success path Close is never called —
// the links outlive the process by design, pinned to the cgroup.
func (c *Collection) Close() error {
	var firstErr error
	if c.connect6 != nil {
		if err := c.connect6.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.connect4 != nil {
		if err := c.connect4.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.coll != nil {
		c.coll.Close()
	}
	return firstErr
}
