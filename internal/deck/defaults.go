package deck

const DefaultPort = 52801

func color(c string) *string {
	return &c
}

// Default returns the configuration written on first start.
func Default() Config {
	return Config{
		Port: DefaultPort,
		Grid: Grid{Columns: 5, Rows: 2},
		Buttons: []Button{
			{
				ID:       "compact",
				Label:    "Compact",
				Position: Position{X: 0, Y: 0, Width: 2, Height: 1},
				Action:   Shortcut{Keys: []string{"Meta", "Shift", "C"}},
				Color:    color("#3B82F6"),
			},
			{
				ID:       "tab",
				Label:    "Tab",
				Position: Position{X: 2, Y: 0, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Tab"}},
				Color:    color("#E5E7EB"),
			},
			{
				ID:       "delete",
				Label:    "⌫",
				Position: Position{X: 3, Y: 0, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Backspace"}},
				Color:    color("#EF4444"),
				Repeat:   &Repeat{Enabled: true, IntervalMS: 80},
			},
			{
				ID:       "accept",
				Label:    "Accept",
				Position: Position{X: 4, Y: 0, Width: 1, Height: 2},
				Action:   Shortcut{Keys: []string{"Return"}},
				Color:    color("#F59E0B"),
			},
			{
				ID:       "new",
				Label:    "New",
				Position: Position{X: 0, Y: 1, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Meta", "N"}},
				Color:    color("#E5E7EB"),
			},
			{
				ID:       "esc",
				Label:    "ESC",
				Position: Position{X: 1, Y: 1, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Escape"}},
				Color:    color("#3B82F6"),
			},
			{
				ID:       "mic",
				Label:    "🎤",
				Position: Position{X: 2, Y: 1, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Meta", "Shift", "R"}},
				Color:    color("#E5E7EB"),
			},
			{
				ID:       "space",
				Label:    "Space",
				Position: Position{X: 3, Y: 1, Width: 1, Height: 1},
				Action:   Shortcut{Keys: []string{"Space"}},
				Color:    color("#E5E7EB"),
			},
		},
	}
}
