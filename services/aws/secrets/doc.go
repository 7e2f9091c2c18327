// Package secrets reads credentials kept in AWS Secrets Manager, such as the
// HTTPS git credentials used to clone CodeCommit repositories for local runs.
//
// # IAM Permissions
//
//	{
//	  "Effect": "Allow",
//	  "Action": ["secretsmanager:GetSecretValue"],
//	  "Resource": "arn:aws:secretsmanager:<region>:<account>:secret:<name>-*"
//	}
//
// kms:Decrypt is also needed when the secret uses a customer-managed key.
//
// Secret values are never logged; only secret ids and operation metadata are.
package secrets
