package irq

import "testing"

type recordingHV struct {
	commits      [][]RoutingEntry
	callCount    int
	failNext     bool
	failOnCalls  map[int]bool // 1-indexed CommitRoutingTable calls to fail
	registered   map[uint32]int
	unregistered map[uint32]int
}

func newRecordingHV() *recordingHV {
	return &recordingHV{
		registered:   make(map[uint32]int),
		unregistered: make(map[uint32]int),
	}
}

// failOnCall schedules the Nth (1-indexed) CommitRoutingTable call to fail.
func (h *recordingHV) failOnCall(n int) {
	if h.failOnCalls == nil {
		h.failOnCalls = make(map[int]bool)
	}
	h.failOnCalls[n] = true
}

func (h *recordingHV) CommitRoutingTable(entries []RoutingEntry) error {
	h.callCount++
	if h.failNext {
		h.failNext = false
		return errCommitFailed
	}
	if h.failOnCalls[h.callCount] {
		return errCommitFailed
	}
	cp := make([]RoutingEntry, len(entries))
	copy(cp, entries)
	h.commits = append(h.commits, cp)
	return nil
}

func (h *recordingHV) RegisterIRQFD(fd int, gsi uint32) error {
	h.registered[gsi]++
	return nil
}

func (h *recordingHV) UnregisterIRQFD(fd int, gsi uint32) error {
	h.unregistered[gsi]++
	return nil
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errCommitFailed = sentinelErr("commit failed")

func (h *recordingHV) lastCommit() []RoutingEntry {
	if len(h.commits) == 0 {
		return nil
	}
	return h.commits[len(h.commits)-1]
}

func newTestTable(t *testing.T) (*RoutingTable, *recordingHV) {
	t.Helper()
	hv := newRecordingHV()
	table, err := NewRoutingTable(hv)
	if err != nil {
		t.Fatalf("NewRoutingTable: %v", err)
	}
	return table, hv
}

func TestRouteMSIInsertsAndCommits(t *testing.T) {
	table, hv := newTestTable(t)

	if err := table.RouteMSI(40, 0, 0xfee00000, 0x41, 1); err != nil {
		t.Fatalf("RouteMSI: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 route, got %d", table.Len())
	}
	if len(hv.lastCommit()) != 1 {
		t.Fatalf("expected commit with 1 entry, got %d", len(hv.lastCommit()))
	}
}

func TestRouteMSIRollsBackOnCommitFailure(t *testing.T) {
	table, hv := newTestTable(t)
	hv.failNext = true

	if err := table.RouteMSI(40, 0, 0xfee00000, 0x41, 1); err == nil {
		t.Fatalf("expected commit failure to propagate")
	}
	if table.Len() != 0 {
		t.Fatalf("expected rollback to leave table empty, got %d entries", table.Len())
	}
}

func TestRouteIntxAllocatesSharedPin(t *testing.T) {
	table, _ := newTestTable(t)

	pin, err := table.RouteIntx(16, 0, nil)
	if err != nil {
		t.Fatalf("RouteIntx: %v", err)
	}
	if pin != 1 {
		t.Fatalf("expected pin 1, got %d", pin)
	}
}

func TestRouteIntxLeaksPinOnCommitFailure(t *testing.T) {
	table, hv := newTestTable(t)
	hv.failNext = true

	if _, err := table.RouteIntx(16, 0, nil); err == nil {
		t.Fatalf("expected commit failure")
	}
	if table.Len() != 0 {
		t.Fatalf("expected no surviving route entries")
	}

	// The pin pool was not rolled back: requesting the same pin again must
	// fail because it is still considered handed out.
	p := uint32(1)
	if _, ok := table.ioapic.AllocatePin(false, &p); ok {
		t.Fatalf("expected pin 1 to remain allocated after commit failure")
	}
}

func TestRouteGenericScenario(t *testing.T) {
	table, _ := newTestTable(t)

	line, err := table.RouteGeneric(32, nil)
	if err != nil {
		t.Fatalf("RouteGeneric: %v", err)
	}
	if line != 1 {
		t.Fatalf("expected line 1, got %d", line)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 entries (pic + ioapic), got %d", table.Len())
	}

	line2, err := table.RouteGeneric(33, nil)
	if err != nil {
		t.Fatalf("RouteGeneric: %v", err)
	}
	if line2 != 3 {
		t.Fatalf("expected line 3 (pin 2 skipped by both pools), got %d", line2)
	}
	if table.Len() != 4 {
		t.Fatalf("expected 4 entries total, got %d", table.Len())
	}
}

func TestRouteGenericIOAPICCommitFailureDowngradesToPicPartialSuccess(t *testing.T) {
	table, hv := newTestTable(t)
	// NewRoutingTable already consumed call #1 (the empty initial commit).
	// RouteGeneric issues two more: #2 for the PIC entry, #3 for the
	// IO-APIC entry. Fail only the latter.
	hv.failOnCall(3)

	line, err := table.RouteGeneric(32, nil)
	if err != nil {
		t.Fatalf("expected no error: a live PIC route should downgrade a failed IO-APIC commit to a partial success, got %v", err)
	}
	if line != 1 {
		t.Fatalf("expected the PIC line (1) to be returned, got %d", line)
	}

	if table.Len() != 1 {
		t.Fatalf("expected only the PIC entry to survive, got %d entries", table.Len())
	}
	if len(hv.commits) != 2 {
		t.Fatalf("expected 2 successful commits (initial empty + pic-only), got %d", len(hv.commits))
	}
	if len(hv.lastCommit()) != 1 {
		t.Fatalf("expected the last successful commit to carry only the pic entry, got %d", len(hv.lastCommit()))
	}
}

func TestRouteGenericBothCommitsFailReturnsError(t *testing.T) {
	table, hv := newTestTable(t)
	// Fail call #2 (the PIC commit) and call #3 (the IO-APIC fallback
	// commit attempted after the PIC commit fails), so neither half ever
	// lands and RouteGeneric has no partial success to report.
	hv.failOnCall(2)
	hv.failOnCall(3)

	if _, err := table.RouteGeneric(32, nil); err == nil {
		t.Fatalf("expected an error when both the pic and ioapic commits fail")
	}
	if table.Len() != 0 {
		t.Fatalf("expected no surviving route entries, got %d", table.Len())
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	table, _ := newTestTable(t)
	entry := RoutingEntry{GSI: 10, Type: EntryMSI, DevID: 1}

	if err := table.Add(entry); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := table.Add(entry); err == nil {
		t.Fatalf("expected duplicate add to be rejected")
	}
}

func TestModifyRejectsMissingKey(t *testing.T) {
	table, _ := newTestTable(t)
	entry := RoutingEntry{GSI: 10, Type: EntryMSI}

	if err := table.Modify(entry); err == nil {
		t.Fatalf("expected modify of absent key to be rejected")
	}
}

func TestModifyRollsBackOnCommitFailure(t *testing.T) {
	table, hv := newTestTable(t)
	entry := RoutingEntry{GSI: 10, Type: EntryMSI, Data: 1}
	if err := table.Add(entry); err != nil {
		t.Fatalf("Add: %v", err)
	}

	updated := entry
	updated.Data = 2
	hv.failNext = true
	if err := table.Modify(updated); err == nil {
		t.Fatalf("expected commit failure")
	}

	got := table.routes[routeKey(entry)]
	if got.Data != 1 {
		t.Fatalf("expected rollback to restore Data=1, got %d", got.Data)
	}
}

func TestRemoveRestoresAllOnCommitFailure(t *testing.T) {
	table, hv := newTestTable(t)
	e1 := RoutingEntry{GSI: 10, Type: EntryMSI, Data: 1}
	e2 := RoutingEntry{GSI: 11, Type: EntryMSI, Data: 2}
	if err := table.Add(e1); err != nil {
		t.Fatalf("Add e1: %v", err)
	}
	if err := table.Add(e2); err != nil {
		t.Fatalf("Add e2: %v", err)
	}

	hv.failNext = true
	if err := table.Remove([]RoutingEntry{e1, e2}); err == nil {
		t.Fatalf("expected commit failure")
	}
	if table.Len() != 2 {
		t.Fatalf("expected both entries restored, got %d", table.Len())
	}
}
