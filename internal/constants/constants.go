package constants

const USER_AGENT = "easel/0.1.0 (+https://github.com/atelierhq/easel)"
