package memory

import (
	"testing"

	"github.com/sig-0/bnarates/storage"
	"github.com/sig-0/bnarates/storage/storagetest"
)

func TestStorage_Memory(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(_ *testing.T, clock *storagetest.Clock) storage.Storage {
		return NewStorage(WithClock(clock.Now))
	})
}
