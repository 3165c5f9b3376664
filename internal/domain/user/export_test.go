package user

var IsValidEmail = isValidEmail
