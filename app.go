package murmur

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// Module is a unit of installable functionality: it registers the resources
// and systems it needs on the App.
type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any

	built   bool
	quitReq bool
}

func NewApp() *App {
	app := &App{
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
	}
	app.stages = defaultStages()
	for _, stage := range app.stages {
		app.systems[stage.Name] = make([]systemFn, 0)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// UseModules records modules for installation. Installation happens once,
// in registration order, when the app is built.
func (app *App) UseModules(modules ...Module) *App {
	app.modules = append(app.modules, modules...)
	return app
}

func (app *App) build() {
	if app.built {
		return
	}
	app.built = true

	cmd := app.Commands()
	for _, module := range app.modules {
		module.Install(app, cmd)
	}
}

func (app *App) Run() {
	app.build()
	app.Logger().Infof("Running %d systems across %d stages", app.systemCount(), len(app.stages))

	for !app.quitReq {
		app.runFrame()
	}

	app.Logger().Infof("Quit requested, shutting down")
}

// runFrame executes every stage once, in order.
func (app *App) runFrame() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
	}
}

func (app *App) systemCount() int {
	n := 0
	for _, systems := range app.systems {
		n += len(systems)
	}
	return n
}

func (app *App) quit() {
	app.quitReq = true
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// resourceOf fetches a registered resource at install time, for modules that
// build on another module's state. Returns nil when absent; callers treat
// that as a module-ordering configuration error.
func resourceOf[T any](app *App) *T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	resource, ok := app.resources[t]
	if !ok {
		return nil
	}
	return resource.(*T)
}

var typeOfCommands = reflect.TypeOf(Commands{})

// callSystem invokes a system function, resolving each parameter either to
// the shared Commands facade or to a registered resource by pointer type.
func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			resourceVal := reflect.ValueOf(resource)
			typedResourceVal := reflect.NewAt(underlyingType, resourceVal.UnsafePointer())

			args[i] = typedResourceVal
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
