package murmur

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := NewApp()

	// Add a resource
	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1) // Try adding resource1 again, should panic
	})

	// Add a resource
	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

func TestApp_callSystem_resolvesResources(t *testing.T) {
	app := NewApp()
	app.addResources(NewMockResource1("injected"))

	var seen string
	app.callSystem(func(r *MockResource1) {
		seen = r.name
	})

	assert.Equal(t, "injected", seen, "system should receive the registered resource by pointer")
}

func TestApp_callSystem_resolvesCommands(t *testing.T) {
	app := NewApp()

	var got *Commands
	app.callSystem(func(cmd *Commands) {
		got = cmd
	})

	require.NotNil(t, got)
	assert.Same(t, app, got.app, "Commands must point back at the owning app")
}

func TestApp_callSystem_panicsOnUnknownDependency(t *testing.T) {
	app := NewApp()

	require.Panics(t, func() {
		app.callSystem(func(r *MockResource2) {})
	}, "resolving a never-registered resource is a configuration error")
}

type installRecorder struct {
	order *[]string
	name  string
}

func (m installRecorder) Install(app *App, cmd *Commands) {
	*m.order = append(*m.order, m.name)
}

func TestApp_build_installsModulesOnceInOrder(t *testing.T) {
	app := NewApp()
	var order []string
	app.UseModules(
		installRecorder{order: &order, name: "a"},
		installRecorder{order: &order, name: "b"},
	)

	app.build()
	app.build() // second build must be a no-op

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestApp_runFrame_stageOrder(t *testing.T) {
	app := NewApp()

	var ran []string
	mark := func(name string) systemScheduleBuilder {
		return System(func() { ran = append(ran, name) })
	}
	app.UseSystem(mark("render").InStage(Render))
	app.UseSystem(mark("update").InStage(Update))
	app.UseSystem(mark("prelude").InStage(Prelude))

	app.runFrame()

	assert.Equal(t, []string{"prelude", "update", "render"}, ran,
		"systems must run in stage order regardless of registration order")
}

func TestApp_UseStage_insertsRelative(t *testing.T) {
	app := NewApp()
	sim := Stage{Name: "Sim"}
	app.UseStage(sim, AfterStage(PreUpdate))

	var ran []string
	app.UseSystem(System(func() { ran = append(ran, "pre") }).InStage(PreUpdate))
	app.UseSystem(System(func() { ran = append(ran, "sim") }).InStage(sim))
	app.UseSystem(System(func() { ran = append(ran, "upd") }).InStage(Update))

	app.runFrame()

	assert.Equal(t, []string{"pre", "sim", "upd"}, ran)

	require.PanicsWithValue(t, fmt.Sprintf("Stage %v not found", "Nope"), func() {
		app.UseStage(Stage{Name: "X"}, BeforeStage(Stage{Name: "Nope"}))
	})
}

func TestApp_quitStopsRun(t *testing.T) {
	app := NewApp()

	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Quit()
		}
	}).InStage(Update))

	app.Run()

	assert.Equal(t, 3, frames, "Run must stop after the frame in which Quit was requested")
}
