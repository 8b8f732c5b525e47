package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/meikuraledutech/tasktracker"
	"github.com/meikuraledutech/tasktracker/postgres"
	"github.com/meikuraledutech/tasktracker/service"
	"github.com/meikuraledutech/tasktracker/sqlite"
)

const owner = "example-user"

func main() {
	ctx := context.Background()

	// PostgreSQL when DATABASE_URL is set, a throwaway SQLite database otherwise.
	var store tracker.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pg, err := postgres.Open(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		store = pg
	} else {
		lite, err := sqlite.Open(":memory:")
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		store = lite
	}
	defer store.Close()

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	logger := log.New()
	logger.SetLevel(log.DebugLevel)
	svc := service.New(store, service.WithLogger(logger))

	// ── Board with three columns ──────────────────────────────────────
	board, err := svc.CreateBoard(ctx, owner, "Release 1.0")
	if err != nil {
		log.Fatalf("create board: %v", err)
	}

	ids := map[string]string{}
	for _, name := range []string{"Todo", "Doing", "Done"} {
		st, err := svc.CreateTaskState(ctx, owner, board.ID, name)
		if err != nil {
			log.Fatalf("create task state: %v", err)
		}
		ids[name] = st.ID
	}
	printBoard(ctx, svc, board.ID, "columns appended in creation order")

	// ── Tasks ─────────────────────────────────────────────────────────
	var taskIDs []string
	for _, name := range []string{"Write changelog", "Tag release", "Announce"} {
		task, err := svc.CreateTask(ctx, owner, ids["Todo"], name, "")
		if err != nil {
			log.Fatalf("create task: %v", err)
		}
		taskIDs = append(taskIDs, task.ID)
	}

	// ── Reposition ────────────────────────────────────────────────────
	// "Done" to the front: only a next neighbor, which must be the head.
	if _, err := svc.MoveTaskState(ctx, owner, ids["Done"], nil, tracker.StringPtr(ids["Todo"])); err != nil {
		log.Fatalf("move task state: %v", err)
	}
	// "Announce" between the other two tasks.
	if _, err := svc.MoveTask(ctx, owner, taskIDs[2], tracker.StringPtr(taskIDs[0]), tracker.StringPtr(taskIDs[1])); err != nil {
		log.Fatalf("move task: %v", err)
	}
	printBoard(ctx, svc, board.ID, "after moving Done first and Announce into the middle")

	// A request the engine refuses leaves the board as it was.
	_, err = svc.MoveTaskState(ctx, owner, ids["Todo"], tracker.StringPtr(ids["Todo"]), nil)
	fmt.Printf("\nmove onto itself: %v\n", err)

	// ── Delete with repair ────────────────────────────────────────────
	if err := svc.DeleteTaskState(ctx, owner, ids["Todo"], false); err != nil {
		log.Fatalf("delete task state: %v", err)
	}
	printBoard(ctx, svc, board.ID, "after deleting Todo and its tasks")

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := svc.DeleteBoard(ctx, owner, board.ID); err != nil {
		log.Fatalf("delete board: %v", err)
	}
	fmt.Println("\nboard deleted")
}

func printBoard(ctx context.Context, svc *service.Service, boardID, title string) {
	states, err := svc.ListTaskStates(ctx, owner, boardID)
	if err != nil {
		log.Fatalf("list task states: %v", err)
	}
	fmt.Printf("\n%s:\n", title)
	printJSON(states)
}

func printJSON(v any) {
	out, _ := sonic.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
