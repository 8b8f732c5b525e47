package memory_test

import (
	"testing"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/memory"
	"github.com/meikuraledutech/tasktracker/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) tracker.Store {
		return memory.New()
	})
}
