package tracing

import "go.uber.org/zap"

type storageKey struct{}

// StorageLayer keeps every span's fields in the span's extensions and
// flattens span-chain fields into each event. It must precede any layer that
// reads Event.Flattened or calls AccumulatedFields.
type StorageLayer struct{}

// NewStorageLayer returns the field accumulation layer.
func NewStorageLayer() *StorageLayer {
	return &StorageLayer{}
}

// Name implements Layer.
func (*StorageLayer) Name() string { return "storage" }

// OnNewSpan implements NewSpanHook.
func (*StorageLayer) OnNewSpan(span *Span) {
	span.SetExtension(storageKey{}, span.Fields())
}

// OnRecord implements RecordHook.
func (*StorageLayer) OnRecord(span *Span, fields []zap.Field) {
	stored, _ := span.Extension(storageKey{})
	current, _ := stored.([]zap.Field)
	span.SetExtension(storageKey{}, mergeFields(current, fields))
}

// OnEvent implements EventHook.
func (*StorageLayer) OnEvent(ev *Event) {
	ev.Flattened = flatten(ev.Fields, ev.Span)
}

// AccumulatedFields returns span's stored fields merged with those of its
// open ancestors, the closest definition of a key winning.
func AccumulatedFields(span *Span) []zap.Field {
	return flatten(nil, span)
}

func flatten(own []zap.Field, span *Span) []zap.Field {
	out := make([]zap.Field, 0, len(own)+8)
	seen := make(map[string]struct{}, len(own)+8)
	add := func(fields []zap.Field) {
		for _, f := range fields {
			if _, dup := seen[f.Key]; dup {
				continue
			}
			seen[f.Key] = struct{}{}
			out = append(out, f)
		}
	}
	add(own)
	for s := span; s != nil; s = s.Parent() {
		stored, ok := s.Extension(storageKey{})
		if !ok {
			continue
		}
		fields, _ := stored.([]zap.Field)
		add(fields)
	}
	return out
}
