package pdfs

// Templates maps a key to a page background already imported into one Writer.
// A Writer owns its map; it is not shared across goroutines.
type Templates[T any] map[string]T

func (t Templates[T]) Has(key string) bool {
	_, ok := t[key]
	return ok
}
