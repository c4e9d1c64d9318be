package disk

import "testing"

func TestMemManagerAllocateWriteRead(t *testing.T) {
	m := NewMemManager()

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first allocated page id 0, got %d", id)
	}

	buf := make([]byte, PageSize)
	buf[0] = 0xAB
	if err := m.WritePage(id, buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	out := make([]byte, PageSize)
	if err := m.ReadPage(id, out); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if out[0] != 0xAB {
		t.Fatalf("expected written byte to round-trip")
	}
}

func TestMemManagerReadMissingPage(t *testing.T) {
	m := NewMemManager()
	if err := m.ReadPage(42, make([]byte, PageSize)); err == nil {
		t.Fatalf("expected an error reading a never-allocated page")
	}
}

func TestMemManagerWrongSizeBuffer(t *testing.T) {
	m := NewMemManager()
	if err := m.ReadPage(0, make([]byte, 10)); err == nil {
		t.Fatalf("expected checkPageSize to reject an undersized buffer")
	}
}

func TestMemManagerClosedRejectsOps(t *testing.T) {
	m := NewMemManager()
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.AllocatePage(); err == nil {
		t.Fatalf("expected AllocatePage to fail after Close")
	}
}

func TestMemManagerDeallocateThenReadFails(t *testing.T) {
	m := NewMemManager()
	id, _ := m.AllocatePage()
	if err := m.DeallocatePage(id); err != nil {
		t.Fatalf("DeallocatePage: %v", err)
	}
	if err := m.ReadPage(id, make([]byte, PageSize)); err == nil {
		t.Fatalf("expected read of a deallocated page to fail")
	}
}
