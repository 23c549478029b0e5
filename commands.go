package murmur

// Commands is the facade systems and modules use to mutate the App itself:
// registering resources and systems, or requesting shutdown. It is resolvable
// as a system parameter.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// Quit asks the run loop to stop after the current frame completes.
func (cmd *Commands) Quit() {
	cmd.app.quit()
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}
