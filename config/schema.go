package config

// schemaSource constrains the shape of a delivery configuration. Checks that
// span several values live in validate.
const schemaSource = `
#Account: {
	stage:              string & !=""
	number:             =~"^[0-9]{12}$"
	region:             string & !=""
	requires_approval?: bool
}

#Commands: {
	pre_build?:  [...string]
	install?:    [...string]
	build?:      [...string]
	post_build?: [...string]
}

#Pipeline: {
	name:              string & !=""
	purpose?:          string
	repository?:       string
	branch?:           string
	accounts?:         [...#Account]
	build?:            #Commands
	deploy?:           #Commands
	integration_test?: [...string]
	watched_paths:     [...string & !=""]
}

#Delivery: {
	repository: string & !=""
	branch?:    string
	settings?: {
		role_arn?:        string
		artifact_bucket?: string
	}
	accounts?: [...#Account]
	pipelines: [...#Pipeline]
}
`
