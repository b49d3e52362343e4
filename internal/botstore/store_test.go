package botstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/MJE43/maze-duel/internal/scripting"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "bots.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndFind(t *testing.T) {
	store := testStore(t)

	bot, err := store.Put(scripting.Source{Role: scripting.RoleMazeMaster, Name: " dfs ", Code: "return {};"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if bot.ID == "" {
		t.Fatal("expected non-empty bot ID")
	}
	if bot.Name != "dfs" {
		t.Errorf("Name = %q, want dfs", bot.Name)
	}

	got, err := store.Find(scripting.RoleMazeMaster, "dfs")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.ID != bot.ID || got.Source != "return {};" {
		t.Errorf("Find = %+v, want %+v", got, bot)
	}

	byID, err := store.Get(bot.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	src := byID.Registration()
	if src.Role != scripting.RoleMazeMaster || src.Name != "dfs" || src.Code != "return {};" {
		t.Errorf("Registration = %+v", src)
	}
}

func TestPutReplacesSource(t *testing.T) {
	store := testStore(t)

	first, err := store.Put(scripting.Source{Role: scripting.RoleAdventurers, Name: "hugger", Code: "v1"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := store.Put(scripting.Source{Role: scripting.RoleAdventurers, Name: "hugger", Code: "v2"})
	if err != nil {
		t.Fatalf("Put again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on re-register: %s -> %s", first.ID, second.ID)
	}
	if second.Source != "v2" {
		t.Errorf("Source = %q, want v2", second.Source)
	}

	// Same name on the other side is a different bot.
	other, err := store.Put(scripting.Source{Role: scripting.RoleMazeMaster, Name: "hugger", Code: "mm"})
	if err != nil {
		t.Fatalf("Put other role: %v", err)
	}
	if other.ID == first.ID {
		t.Error("expected a distinct bot for the other role")
	}
}

func TestPutRejectsBadInput(t *testing.T) {
	store := testStore(t)

	if _, err := store.Put(scripting.Source{Role: scripting.RoleMazeMaster, Name: "  "}); err == nil {
		t.Error("expected error for empty name")
	}
	_, err := store.Put(scripting.Source{Role: "referee", Name: "x"})
	if !errors.Is(err, scripting.ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

func TestListAndDelete(t *testing.T) {
	store := testStore(t)

	for _, src := range []scripting.Source{
		{Role: scripting.RoleMazeMaster, Name: "b-master", Code: "x"},
		{Role: scripting.RoleMazeMaster, Name: "a-master", Code: "x"},
		{Role: scripting.RoleAdventurers, Name: "party", Code: "x"},
	} {
		if _, err := store.Put(src); err != nil {
			t.Fatalf("Put %s: %v", src.Name, err)
		}
	}

	all, err := store.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d bots, want 3", len(all))
	}
	if all[0].Role != scripting.RoleAdventurers || all[1].Name != "a-master" {
		t.Errorf("unexpected order: %+v", all)
	}
	for _, b := range all {
		if b.Source != "" {
			t.Errorf("List should omit source, got %q for %s", b.Source, b.Name)
		}
	}

	masters, err := store.List(scripting.RoleMazeMaster)
	if err != nil {
		t.Fatalf("List masters: %v", err)
	}
	if len(masters) != 2 {
		t.Fatalf("List masters returned %d bots, want 2", len(masters))
	}

	if err := store.Delete(masters[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(masters[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(masters[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestFindMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.Find(scripting.RoleAdventurers, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
