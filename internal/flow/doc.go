// Package flow drives the admin authentication pages: sign-in, first-admin
// registration, invited-user registration, password-reset request and
// password-reset completion.
//
// # Components
//
//	flow/
//	├── mode.go        # The five modes and route parameter parsing
//	├── registry.go    # Mode -> FlowDescriptor lookup with override merge
//	├── forms.go       # Built-in form table
//	├── state.go       # Form state and its pure reducer
//	├── lifecycle.go   # Per-mount cancellation scope and request tracking
//	├── classify.go    # Server error payload classification
//	├── dispatcher.go  # Per-mode submit handlers
//	├── redirect.go    # Guard and post-success navigation targets
//	└── controller.go  # Mount / change / submit / unmount
//
// # Usage
//
//	ctrl := flow.NewController(flow.Deps{
//		Registry:  flow.DefaultRegistry(),
//		Transport: identityClient,
//		Session:   sessionStore,
//		Navigator: navigator,
//		Admin:     adminState,
//		Redirect:  flow.RedirectPolicy{Routes: flow.DefaultRoutes()},
//	}, flow.Options{})
//
//	if target, err := ctrl.Mount(ctx, "login", r.URL.RawQuery); target != nil {
//		// redirect before rendering
//	}
//	ctrl.Change("email", "admin@example.com")
//	outcome, err := ctrl.Submit(ctx)
//	defer ctrl.Unmount()
//
// Collaborators (transport, session store, navigation, locale, usage
// tracking, guided tour, admin state) are consumed through the interfaces in
// ports.go and must not call back into the Controller.
package flow
