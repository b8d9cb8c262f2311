package queue

import (
	"bayloe/internal/format"
	"bayloe/internal/output"
)

// Status is the coarse lifecycle label of an item.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var allStatuses = []Status{StatusIdle, StatusConverting, StatusCompleted, StatusError}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// State is one of Idle, Converting, Completed, or Failed.
type State interface {
	Status() Status
	state()
}

// Idle items are waiting for a conversion.
type Idle struct{}

// Converting items have a conversion under way toward Format.
type Converting struct {
	Format format.Format
}

// Completed items own the output of their last conversion.
type Completed struct {
	Format format.Format
	Output *output.Handle
}

// Failed items carry the message of their last failed conversion.
type Failed struct {
	Message string
}

func (Idle) Status() Status       { return StatusIdle }
func (Converting) Status() Status { return StatusConverting }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusError }

func (Idle) state()       {}
func (Converting) state() {}
func (Completed) state()  {}
func (Failed) state()     {}

// File is one input handed to AddFiles.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Source is the immutable original content of an item.
type Source struct {
	name string
	mime string
	data []byte
}

func newSource(f File) Source {
	mimeType := f.MIME
	if mimeType == "" {
		mimeType = format.DetectMIME(f.Name)
	}
	return Source{name: f.Name, mime: mimeType, data: append([]byte(nil), f.Data...)}
}

func (s Source) Name() string { return s.name }
func (s Source) MIME() string { return s.mime }
func (s Source) Size() int64  { return int64(len(s.data)) }

// Item is one queued file. Only the Manager mutates items.
type Item struct {
	ID     string
	Source Source
	Format format.Format
	State  State
	// run identifies the conversion whose result may be applied.
	run uint64
}

// ItemView is a read-only snapshot of an Item.
type ItemView struct {
	ID     string
	Name   string
	MIME   string
	Size   int64
	Format format.Format
	Status Status
	// Target is the format of the running or finished conversion.
	Target format.Format
	Output *output.Handle
	Error  string
}

// DownloadName is the file name offered for a completed item.
func (v ItemView) DownloadName() string {
	if v.Status != StatusCompleted {
		return ""
	}
	return v.Target.DownloadName()
}

func (it *Item) view() ItemView {
	v := ItemView{
		ID:     it.ID,
		Name:   it.Source.name,
		MIME:   it.Source.mime,
		Size:   it.Source.Size(),
		Format: it.Format,
		Status: it.State.Status(),
	}
	switch st := it.State.(type) {
	case Converting:
		v.Target = st.Format
	case Completed:
		v.Target = st.Format
		v.Output = st.Output
	case Failed:
		v.Error = st.Message
	}
	return v
}

// Event reports an item change to subscribers.
type Event struct {
	ItemID string
	Status Status
	// Removed is set when the item left the queue.
	Removed bool
}
