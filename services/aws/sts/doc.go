// Package sts assumes the per-account deploy role for a single rollout stage.
//
// Each deploy action runs with credentials for exactly one target account.
// Client.AssumeRole refuses role ARNs that belong to any other account, which
// keeps a stage from reaching into its siblings even when it is misconfigured.
//
// # IAM Permissions
//
//	{
//	  "Effect": "Allow",
//	  "Action": ["sts:AssumeRole"],
//	  "Resource": "arn:aws:iam::<account>:role/SSTCodebuild"
//	}
package sts
