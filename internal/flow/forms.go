package flow

const passwordRules = "required,min=8,max=72,containsany=abcdefghijklmnopqrstuvwxyz,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=0123456789"

// DefaultForms returns the built-in form table.
func DefaultForms() Forms {
	return Forms{
		ModeLogin: {
			Endpoint:     "login",
			FieldsToOmit: []string{"rememberMe"},
			Schema: Schema{Fields: []FieldSpec{
				{Name: "email", Default: "", Rules: "required,email"},
				{Name: "password", Default: "", Rules: "required"},
				{Name: "rememberMe", Default: false},
			}},
		},
		ModeRegister: {
			Endpoint:        "register",
			FieldsToOmit:    []string{"userInfo.confirmPassword", "userInfo.news", "userInfo.email"},
			FieldsToDisable: []string{"email"},
			InputsPrefix:    "userInfo.",
			Schema: Schema{Fields: []FieldSpec{
				{Name: "userInfo.firstname", Default: "", Rules: "required"},
				{Name: "userInfo.lastname", Default: ""},
				{Name: "userInfo.email", Default: "", Rules: "required,email"},
				{Name: "userInfo.password", Default: "", Rules: passwordRules},
				{Name: "userInfo.confirmPassword", Default: "", Rules: "required", Match: "userInfo.password"},
				{Name: "userInfo.news", Default: false},
				{Name: "registrationToken", Default: "", Rules: "required"},
			}},
		},
		ModeRegisterAdmin: {
			Endpoint:     "register-admin",
			FieldsToOmit: []string{"confirmPassword", "news"},
			Schema: Schema{Fields: []FieldSpec{
				{Name: "firstname", Default: "", Rules: "required"},
				{Name: "lastname", Default: ""},
				{Name: "email", Default: "", Rules: "required,email"},
				{Name: "password", Default: "", Rules: passwordRules},
				{Name: "confirmPassword", Default: "", Rules: "required", Match: "password"},
				{Name: "news", Default: false},
			}},
		},
		ModeForgotPassword: {
			Endpoint: "forgot-password",
			Schema: Schema{Fields: []FieldSpec{
				{Name: "email", Default: "", Rules: "required,email"},
			}},
		},
		ModeResetPassword: {
			Endpoint:     "reset-password",
			FieldsToOmit: []string{"confirmPassword"},
			Schema: Schema{Fields: []FieldSpec{
				{Name: "password", Default: "", Rules: passwordRules},
				{Name: "confirmPassword", Default: "", Rules: "required", Match: "password"},
			}},
		},
	}
}
